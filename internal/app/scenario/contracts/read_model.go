package contracts

import (
	"context"
	"encoding/json"
	"time"
)

// PackageDTO is what the editor loads on mount.
type PackageDTO struct {
	PackageID string                     `json:"package_id"`
	Status    string                     `json:"status"`
	Version   int64                      `json:"version"`
	Sections  map[string]json.RawMessage `json:"sections"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// SectionSaveDTO is one entry of a package's save history.
type SectionSaveDTO struct {
	EventID string          `json:"event_id"`
	Section string          `json:"section"`
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data,omitempty"`
	SavedAt time.Time       `json:"saved_at"`
}

// ReadModel defines the queries behind the editor.
type ReadModel interface {
	// GetPackage retrieves a package with all of its sections.
	GetPackage(ctx context.Context, packageID string) (*PackageDTO, error)

	// ListSectionSaves returns the most recent section saves, newest first.
	ListSectionSaves(ctx context.Context, packageID, section string, limit int64) ([]*SectionSaveDTO, error)
}
