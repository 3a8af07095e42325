package domain

import "fmt"

// Section identifies one independently savable region of a composite editor.
type Section string

// Sections of the scenario package editor.
const (
	SectionBasic     Section = "basic"
	SectionPackages  Section = "packages"
	SectionAddons    Section = "addons"
	SectionTimeSlots Section = "time_slots"
	SectionPublish   Section = "publish"
)

// ScenarioPackageSections returns the scenario package editor tabs in display order.
func ScenarioPackageSections() []Section {
	return []Section{
		SectionBasic,
		SectionPackages,
		SectionAddons,
		SectionTimeSlots,
		SectionPublish,
	}
}

// ParseSection validates s against the given closed set.
func ParseSection(s string, allowed []Section) (Section, error) {
	for _, sec := range allowed {
		if string(sec) == s {
			return sec, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, s)
}

func (s Section) String() string { return string(s) }
