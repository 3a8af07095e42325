package domain

import (
	"encoding/json"
	"time"
)

// PackageStatus represents the lifecycle status of a scenario package.
type PackageStatus string

const (
	StatusDraft     PackageStatus = "draft"
	StatusPublished PackageStatus = "published"
	StatusArchived  PackageStatus = "archived"
)

// ScenarioPackage is the aggregate root for a bookable scenario package.
// Each editor section is stored as its own JSON document.
type ScenarioPackage struct {
	id        string
	status    PackageStatus
	version   int64
	sections  map[string]json.RawMessage
	createdAt time.Time
	updatedAt time.Time

	// Change tracking for optimized repository updates
	changes *ChangeTracker

	// Domain events to be published
	events []DomainEvent
}

// NewScenarioPackage creates an empty draft package.
func NewScenarioPackage(id string, now time.Time) *ScenarioPackage {
	return &ScenarioPackage{
		id:        id,
		status:    StatusDraft,
		sections:  make(map[string]json.RawMessage),
		createdAt: now,
		updatedAt: now,
		changes:   NewChangeTracker(),
		events:    make([]DomainEvent, 0),
	}
}

// ReconstructScenarioPackage rebuilds a package from storage. Unknown
// section keys are ignored.
func ReconstructScenarioPackage(
	id string,
	status PackageStatus,
	version int64,
	sections map[string]json.RawMessage,
	createdAt, updatedAt time.Time,
) *ScenarioPackage {
	p := NewScenarioPackage(id, createdAt)
	p.status = status
	p.version = version
	p.updatedAt = updatedAt
	for _, s := range Sections() {
		raw, ok := sections[s]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		// Stored JSON may differ in key order; keep the canonical form when it still decodes.
		if canonical, _, err := decodeSection(s, raw); err == nil {
			raw = canonical
		}
		p.sections[s] = append(json.RawMessage(nil), raw...)
	}
	return p
}

// Getters
func (p *ScenarioPackage) ID() string              { return p.id }
func (p *ScenarioPackage) Status() PackageStatus   { return p.status }
func (p *ScenarioPackage) Version() int64          { return p.version }
func (p *ScenarioPackage) CreatedAt() time.Time    { return p.createdAt }
func (p *ScenarioPackage) UpdatedAt() time.Time    { return p.updatedAt }
func (p *ScenarioPackage) Changes() *ChangeTracker { return p.changes }
func (p *ScenarioPackage) DomainEvents() []DomainEvent {
	return p.events
}

// Section returns the stored JSON of a section, or nil if it was never saved.
func (p *ScenarioPackage) Section(section string) json.RawMessage {
	raw, ok := p.sections[section]
	if !ok {
		return nil
	}
	return append(json.RawMessage(nil), raw...)
}

// SaveSection validates raw as the payload of section and stores it.
// Saving a payload identical to the stored one records no change.
func (p *ScenarioPackage) SaveSection(section string, raw []byte, now time.Time) error {
	if p.status == StatusArchived {
		return ErrPackageArchived
	}
	canonical, typed, err := decodeSection(section, raw)
	if err != nil {
		return err
	}
	if string(p.sections[section]) == string(canonical) {
		return nil
	}

	p.sections[section] = canonical
	p.updatedAt = now
	p.changes.MarkDirty(section)
	p.recordEvent(&SectionSavedEvent{
		PackageID: p.id,
		Section:   section,
		Version:   p.version + 1,
		Data:      canonical,
		SavedAt:   now,
	})

	if settings, ok := typed.(PublishSettings); ok {
		p.applyPublish(settings, now)
	}
	return nil
}

func (p *ScenarioPackage) applyPublish(settings PublishSettings, now time.Time) {
	switch {
	case settings.Published && p.status != StatusPublished:
		p.status = StatusPublished
		p.changes.MarkDirty(FieldStatus)
		p.recordEvent(&PackagePublishedEvent{PackageID: p.id, Channels: settings.Channels, At: now})
	case !settings.Published && p.status == StatusPublished:
		p.status = StatusDraft
		p.changes.MarkDirty(FieldStatus)
		p.recordEvent(&PackageUnpublishedEvent{PackageID: p.id, At: now})
	}
}

// FieldStatus is the change-tracking key of the status column.
const FieldStatus = "status"

// ClearEvents clears all domain events (called after publishing).
func (p *ScenarioPackage) ClearEvents() {
	p.events = make([]DomainEvent, 0)
}

func (p *ScenarioPackage) recordEvent(event DomainEvent) {
	p.events = append(p.events, event)
}
