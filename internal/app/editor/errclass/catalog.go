package errclass

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other catalog falls back to.
const BaseLocale = "en-US"

//go:embed locales/*.yaml
var embeddedLocales embed.FS

var defaultBundle = mustLoadEmbedded()

type catalogFile struct {
	Locale   string            `yaml:"locale"`
	Messages map[string]string `yaml:"messages"`
}

// Bundle holds the message catalogs of every known locale.
type Bundle struct {
	builder  *catalog.Builder
	tags     []language.Tag
	matcher  language.Matcher
	messages map[string]map[string]string // locale -> key -> message
}

// Catalog renders messages for one resolved locale.
type Catalog struct {
	locale  string
	printer *message.Printer
	keys    map[string]bool
	base    *Catalog
}

// DefaultBundle returns the bundle built from the embedded locale files.
func DefaultBundle() *Bundle {
	return defaultBundle
}

// LoadBundle loads every locales/*.yaml file from fsys.
func LoadBundle(fsys fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no locale catalogs found")
	}
	sort.Strings(paths)

	base := language.MustParse(BaseLocale)
	b := &Bundle{
		builder:  catalog.NewBuilder(catalog.Fallback(base)),
		messages: map[string]map[string]string{},
	}

	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		if err := b.add(path, file); err != nil {
			return nil, err
		}
	}

	if _, ok := b.messages[BaseLocale]; !ok {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}

	// The matcher prefers the first tag when nothing matches.
	sort.SliceStable(b.tags, func(i, j int) bool { return b.tags[i] == base && b.tags[j] != base })
	b.matcher = language.NewMatcher(b.tags)
	return b, nil
}

func (b *Bundle) add(path string, file catalogFile) error {
	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", path)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return fmt.Errorf("catalog %s: parse locale %q: %w", path, locale, err)
	}
	if _, dup := b.messages[tag.String()]; dup {
		return fmt.Errorf("catalog %s: locale %q defined twice", path, locale)
	}

	msgs := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", path)
		}
		if err := b.builder.SetString(tag, key, value); err != nil {
			return fmt.Errorf("catalog %s: register %q: %w", path, key, err)
		}
		msgs[key] = value
	}

	b.messages[tag.String()] = msgs
	b.tags = append(b.tags, tag)
	return nil
}

// Locales returns the available locales sorted.
func (b *Bundle) Locales() []string {
	out := make([]string, 0, len(b.messages))
	for l := range b.messages {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Catalog returns the catalog best matching locale, falling back to BaseLocale.
func (b *Bundle) Catalog(locale string) *Catalog {
	requested, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		requested = language.MustParse(BaseLocale)
	}
	_, idx, _ := b.matcher.Match(requested)
	tag := b.tags[idx]

	c := b.catalogFor(tag)
	if c.locale != BaseLocale {
		c.base = b.catalogFor(language.MustParse(BaseLocale))
	}
	return c
}

func (b *Bundle) catalogFor(tag language.Tag) *Catalog {
	keys := make(map[string]bool)
	for k := range b.messages[tag.String()] {
		keys[k] = true
	}
	return &Catalog{
		locale:  tag.String(),
		printer: message.NewPrinter(tag, message.Catalog(b.builder)),
		keys:    keys,
	}
}

// Locale returns the resolved locale.
func (c *Catalog) Locale() string { return c.locale }

// KindMessage returns the generic message for kind.
func (c *Catalog) KindMessage(kind Kind) string {
	if msg, ok := c.lookup("kind." + string(kind)); ok {
		return msg
	}
	msg, _ := c.lookup("kind." + string(KindUnknown))
	return msg
}

// CodeMessage returns the message registered for a server error code.
func (c *Catalog) CodeMessage(code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	return c.lookup("code." + code)
}

func (c *Catalog) lookup(key string) (string, bool) {
	if c.keys[key] {
		return c.printer.Sprintf(message.Key(key, key)), true
	}
	if c.base != nil {
		return c.base.lookup(key)
	}
	return "", false
}

func mustLoadEmbedded() *Bundle {
	b, err := LoadBundle(embeddedLocales)
	if err != nil {
		panic(fmt.Sprintf("load embedded error catalogs: %v", err))
	}
	return b
}
