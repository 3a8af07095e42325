package domain

import (
	"encoding/json"
	"time"
)

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
}

// SectionSavedEvent is emitted when one section of a package is saved.
type SectionSavedEvent struct {
	PackageID string          `json:"package_id"`
	Section   string          `json:"section"`
	Version   int64           `json:"version"`
	Data      json.RawMessage `json:"data"`
	SavedAt   time.Time       `json:"saved_at"`
}

func (e *SectionSavedEvent) EventType() string   { return "scenario_package.section_saved" }
func (e *SectionSavedEvent) AggregateID() string { return e.PackageID }

// PackagePublishedEvent is emitted when the publish section flips a package to published.
type PackagePublishedEvent struct {
	PackageID string    `json:"package_id"`
	Channels  []string  `json:"channels"`
	At        time.Time `json:"at"`
}

func (e *PackagePublishedEvent) EventType() string   { return "scenario_package.published" }
func (e *PackagePublishedEvent) AggregateID() string { return e.PackageID }

// PackageUnpublishedEvent is emitted when the publish section withdraws a package.
type PackageUnpublishedEvent struct {
	PackageID string    `json:"package_id"`
	At        time.Time `json:"at"`
}

func (e *PackageUnpublishedEvent) EventType() string   { return "scenario_package.unpublished" }
func (e *PackageUnpublishedEvent) AggregateID() string { return e.PackageID }
