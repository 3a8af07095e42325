package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Section keys, matching the editor's tabs.
const (
	SectionBasic     = "basic"
	SectionPackages  = "packages"
	SectionAddons    = "addons"
	SectionTimeSlots = "time_slots"
	SectionPublish   = "publish"
)

// Sections returns every section key in editor order.
func Sections() []string {
	return []string{SectionBasic, SectionPackages, SectionAddons, SectionTimeSlots, SectionPublish}
}

// BasicInfo is the basic section.
type BasicInfo struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
}

// PackageOption is one bookable option of the packages section.
type PackageOption struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Capacity  int     `json:"capacity,omitempty"`
	Available bool    `json:"available"`
}

// Addon is one optional extra.
type Addon struct {
	Name  string  `json:"name"`
	Price float64 `json:"price,omitempty"`
}

// TimeSlot is a daily bookable window in HH:MM.
type TimeSlot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PublishSettings is the publish section.
type PublishSettings struct {
	Published bool     `json:"published"`
	Channels  []string `json:"channels,omitempty"`
}

const slotLayout = "15:04"

// decodeSection strictly decodes raw into the typed payload of section,
// validates it, and returns its canonical JSON encoding.
func decodeSection(section string, raw []byte) (json.RawMessage, any, error) {
	switch section {
	case SectionBasic:
		var v BasicInfo
		if err := strictDecode(raw, &v); err != nil {
			return nil, nil, err
		}
		return encode(section, v, validateBasic(v))
	case SectionPackages:
		var v []PackageOption
		if err := strictDecode(raw, &v); err != nil {
			return nil, nil, err
		}
		return encode(section, v, validatePackages(v))
	case SectionAddons:
		var v []Addon
		if err := strictDecode(raw, &v); err != nil {
			return nil, nil, err
		}
		return encode(section, v, validateAddons(v))
	case SectionTimeSlots:
		var v []TimeSlot
		if err := strictDecode(raw, &v); err != nil {
			return nil, nil, err
		}
		return encode(section, v, validateTimeSlots(v))
	case SectionPublish:
		var v PublishSettings
		if err := strictDecode(raw, &v); err != nil {
			return nil, nil, err
		}
		return encode(section, v, validatePublish(v))
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSection, section)
	}
}

func strictDecode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrMalformedPayload)
	}
	return nil
}

func encode(section string, v any, invalid violations) (json.RawMessage, any, error) {
	if err := invalid.err(section); err != nil {
		return nil, nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode %s: %w", section, err)
	}
	return b, v, nil
}

func validateBasic(v BasicInfo) violations {
	bad := violations{}
	if strings.TrimSpace(v.Name) == "" {
		bad.add("name", "is required")
	} else if len(v.Name) > 120 {
		bad.add("name", "must be at most 120 characters")
	}
	if strings.TrimSpace(v.Category) == "" {
		bad.add("category", "is required")
	}
	return bad
}

func validatePackages(v []PackageOption) violations {
	bad := violations{}
	for i, p := range v {
		if strings.TrimSpace(p.Name) == "" {
			bad.add(fmt.Sprintf("packages[%d].name", i), "is required")
		}
		if p.Price <= 0 {
			bad.add(fmt.Sprintf("packages[%d].price", i), "must be positive")
		}
		if p.Capacity < 0 {
			bad.add(fmt.Sprintf("packages[%d].capacity", i), "cannot be negative")
		}
	}
	return bad
}

func validateAddons(v []Addon) violations {
	bad := violations{}
	for i, a := range v {
		if strings.TrimSpace(a.Name) == "" {
			bad.add(fmt.Sprintf("addons[%d].name", i), "is required")
		}
		if a.Price < 0 {
			bad.add(fmt.Sprintf("addons[%d].price", i), "cannot be negative")
		}
	}
	return bad
}

func validateTimeSlots(v []TimeSlot) violations {
	bad := violations{}
	for i, s := range v {
		start, errStart := time.Parse(slotLayout, s.Start)
		end, errEnd := time.Parse(slotLayout, s.End)
		if errStart != nil {
			bad.add(fmt.Sprintf("time_slots[%d].start", i), "must be HH:MM")
		}
		if errEnd != nil {
			bad.add(fmt.Sprintf("time_slots[%d].end", i), "must be HH:MM")
		}
		if errStart == nil && errEnd == nil && !start.Before(end) {
			bad.add(fmt.Sprintf("time_slots[%d].end", i), "must be after start")
		}
	}
	return bad
}

func validatePublish(v PublishSettings) violations {
	bad := violations{}
	if v.Published && len(v.Channels) == 0 {
		bad.add("channels", "at least one channel is required to publish")
	}
	for i, c := range v.Channels {
		if strings.TrimSpace(c) == "" {
			bad.add(fmt.Sprintf("channels[%d]", i), "cannot be blank")
		}
	}
	return bad
}
