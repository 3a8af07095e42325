package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/light-bringer/procat-editor/internal/app/editor/autosave"
	"github.com/light-bringer/procat-editor/internal/app/editor/domain"
	"github.com/light-bringer/procat-editor/internal/app/scenario/queries/get_package"
	"github.com/light-bringer/procat-editor/internal/services"
	httphandler "github.com/light-bringer/procat-editor/internal/transport/http"
)

// httpBackend saves through the scenario package HTTP API.
type httpBackend struct {
	client *httphandler.SectionClient
}

func (b *httpBackend) Load(ctx context.Context, entityID string) (map[domain.Section]any, error) {
	dto, err := b.client.Load(ctx, entityID)
	if err != nil {
		return nil, err
	}
	return decodeSections(dto.Sections)
}

func (b *httpBackend) SaveFunc(entityID string, section domain.Section) autosave.SaveFunc {
	return b.client.SaveFunc(entityID, string(section))
}

// localBackend saves in-process through the usecases.
type localBackend struct {
	opts *services.ServiceOptions
}

func (b *localBackend) Load(ctx context.Context, entityID string) (map[domain.Section]any, error) {
	dto, err := b.opts.GetPackage.Execute(ctx, &get_package.Request{PackageID: entityID})
	if err != nil {
		return nil, err
	}
	b.opts.LocalSaver.Track(entityID, dto.Version)
	return decodeSections(dto.Sections)
}

func (b *localBackend) SaveFunc(entityID string, section domain.Section) autosave.SaveFunc {
	return b.opts.LocalSaver.SaveFunc(entityID, string(section))
}

// decodeSections turns stored section JSON into the generic values the
// editor compares edits against.
func decodeSections(sections map[string]json.RawMessage) (map[domain.Section]any, error) {
	out := make(map[domain.Section]any, len(sections))
	for name, raw := range sections {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode section %s: %w", name, err)
		}
		out[domain.Section(name)] = v
	}
	return out, nil
}
