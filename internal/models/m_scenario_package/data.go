package m_scenario_package

import (
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the scenario_packages table.
type Data struct {
	PackageID string           `spanner:"package_id"`
	Status    string           `spanner:"status"`
	Version   int64            `spanner:"version"`
	BasicInfo spanner.NullJSON `spanner:"basic_info"`
	Packages  spanner.NullJSON `spanner:"packages"`
	Addons    spanner.NullJSON `spanner:"addons"`
	TimeSlots spanner.NullJSON `spanner:"time_slots"`
	Publish   spanner.NullJSON `spanner:"publish"`
	CreatedAt time.Time        `spanner:"created_at"`
	UpdatedAt time.Time        `spanner:"updated_at"`
}

// SectionValues returns the section columns keyed by section.
func (d *Data) SectionValues() map[string]spanner.NullJSON {
	return map[string]spanner.NullJSON{
		"basic":      d.BasicInfo,
		"packages":   d.Packages,
		"addons":     d.Addons,
		"time_slots": d.TimeSlots,
		"publish":    d.Publish,
	}
}
