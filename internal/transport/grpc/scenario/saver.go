// Package scenario adapts the scenario package usecases into editor save
// functions that run in the same process and fail with gRPC status errors.
package scenario

import (
	"context"
	"encoding/json"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/light-bringer/procat-editor/internal/app/editor/autosave"
	"github.com/light-bringer/procat-editor/internal/app/scenario/usecases/save_section"
)

// SectionSaver saves one section. *save_section.Interactor implements it.
type SectionSaver interface {
	Execute(ctx context.Context, req *save_section.Request) (*save_section.Response, error)
}

// LocalSaver calls the save section usecase directly. Saves run one at a
// time so each carries the version produced by the previous one.
type LocalSaver struct {
	save   SectionSaver
	saveMu sync.Mutex

	mu       sync.Mutex
	versions map[string]int64
}

// NewLocalSaver creates a LocalSaver over save.
func NewLocalSaver(save SectionSaver) *LocalSaver {
	return &LocalSaver{save: save, versions: make(map[string]int64)}
}

// Track records the version the editor loaded for packageID.
func (s *LocalSaver) Track(packageID string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.versions[packageID] = version
}

// Version returns the last version seen for packageID.
func (s *LocalSaver) Version(packageID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[packageID]
}

// SaveFunc returns a save function for one section of packageID.
func (s *LocalSaver) SaveFunc(packageID, section string) autosave.SaveFunc {
	return func(ctx context.Context, data any) error {
		if err := validateSaveTarget(packageID, section); err != nil {
			return err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return status.Errorf(codes.InvalidArgument, "encode section %s: %v", section, err)
		}

		s.saveMu.Lock()
		defer s.saveMu.Unlock()

		resp, err := s.save.Execute(ctx, &save_section.Request{
			PackageID:       packageID,
			Section:         section,
			ExpectedVersion: s.Version(packageID),
			Data:            raw,
		})
		if err != nil {
			return mapDomainErrorToGRPC(err)
		}
		s.Track(packageID, resp.Version)
		return nil
	}
}
