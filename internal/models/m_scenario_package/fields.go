package m_scenario_package

// Field name constants for the scenario_packages table.
const (
	TableName = "scenario_packages"

	PackageID = "package_id"
	Status    = "status"
	Version   = "version"
	BasicInfo = "basic_info"
	Packages  = "packages"
	Addons    = "addons"
	TimeSlots = "time_slots"
	Publish   = "publish"
	CreatedAt = "created_at"
	UpdatedAt = "updated_at"
)

// sectionColumns maps editor section keys to their JSON columns.
var sectionColumns = map[string]string{
	"basic":      BasicInfo,
	"packages":   Packages,
	"addons":     Addons,
	"time_slots": TimeSlots,
	"publish":    Publish,
}

// SectionColumn returns the column storing section.
func SectionColumn(section string) (string, bool) {
	col, ok := sectionColumns[section]
	return col, ok
}

// AllColumns lists every column in table order.
func AllColumns() []string {
	return []string{PackageID, Status, Version, BasicInfo, Packages, Addons, TimeSlots, Publish, CreatedAt, UpdatedAt}
}
