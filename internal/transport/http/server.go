// Package http exposes scenario package sections over JSON and provides the
// client the editor coordinator saves through.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
	"github.com/light-bringer/procat-editor/internal/app/scenario/queries/get_package"
	"github.com/light-bringer/procat-editor/internal/app/scenario/queries/list_section_saves"
	"github.com/light-bringer/procat-editor/internal/app/scenario/usecases/save_section"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
)

const maxBodyBytes = 1 << 20

// SectionSaver saves one section. *save_section.Interactor implements it.
type SectionSaver interface {
	Execute(ctx context.Context, req *save_section.Request) (*save_section.Response, error)
}

// PackageCreator creates draft packages.
type PackageCreator interface {
	Execute(ctx context.Context) (string, error)
}

// PackageGetter loads a package. *get_package.Query implements it.
type PackageGetter interface {
	Execute(ctx context.Context, req *get_package.Request) (*contracts.PackageDTO, error)
}

// SaveLister lists section saves. *list_section_saves.Query implements it.
type SaveLister interface {
	Execute(ctx context.Context, req *list_section_saves.Request) ([]*contracts.SectionSaveDTO, error)
}

// SaveSectionBody is the PUT body of a section save.
type SaveSectionBody struct {
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// SaveSectionResult is the PUT response of a section save.
type SaveSectionResult struct {
	PackageID string `json:"package_id"`
	Section   string `json:"section"`
	Version   int64  `json:"version"`
	Changed   bool   `json:"changed"`
}

// Server handles the scenario package API.
type Server struct {
	create  PackageCreator
	save    SectionSaver
	get     PackageGetter
	history SaveLister
	logger  *slog.Logger
}

// NewServer creates the API handler.
func NewServer(create PackageCreator, save SectionSaver, get PackageGetter, history SaveLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{create: create, save: save, get: get, history: history, logger: logger}
}

// Handler routes the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/scenario-packages", s.createPackage)
	mux.HandleFunc("GET /api/v1/scenario-packages/{id}", s.getPackage)
	mux.HandleFunc("PUT /api/v1/scenario-packages/{id}/sections/{section}", s.saveSection)
	mux.HandleFunc("GET /api/v1/scenario-packages/{id}/saves", s.listSaves)
	return mux
}

func (s *Server) createPackage(w http.ResponseWriter, r *http.Request) {
	id, err := s.create.Execute(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"package_id": id})
}

func (s *Server) getPackage(w http.ResponseWriter, r *http.Request) {
	dto, err := s.get.Execute(r.Context(), &get_package.Request{PackageID: r.PathValue("id")})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

func (s *Server) saveSection(w http.ResponseWriter, r *http.Request) {
	var body SaveSectionBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err))
		return
	}

	id, section := r.PathValue("id"), r.PathValue("section")
	resp, err := s.save.Execute(r.Context(), &save_section.Request{
		PackageID:       id,
		Section:         section,
		ExpectedVersion: body.Version,
		Data:            body.Data,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.InfoContext(r.Context(), "section saved",
		slog.String(logging.KeyEntityID, id),
		slog.String(logging.KeySection, section),
		slog.Int64("version", resp.Version),
		slog.Bool("changed", resp.Changed))
	writeJSON(w, http.StatusOK, SaveSectionResult{PackageID: id, Section: section, Version: resp.Version, Changed: resp.Changed})
}

func (s *Server) listSaves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &list_section_saves.Request{PackageID: r.PathValue("id"), Section: q.Get("section")}
	if limitStr := q.Get("limit"); limitStr != "" {
		if limit, err := strconv.ParseInt(limitStr, 10, 64); err == nil && limit > 0 {
			req.Limit = limit
		}
	}

	saves, err := s.history.Execute(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if saves == nil {
		saves = []*contracts.SectionSaveDTO{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"saves": saves})
}
