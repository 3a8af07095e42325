package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
	"github.com/light-bringer/procat-editor/internal/app/scenario/domain"
	"github.com/light-bringer/procat-editor/internal/app/scenario/queries/get_package"
	"github.com/light-bringer/procat-editor/internal/app/scenario/queries/list_section_saves"
	"github.com/light-bringer/procat-editor/internal/app/scenario/usecases/save_section"
)

type fakeBackend struct {
	version  int64
	sections map[string]json.RawMessage
	saveErr  error
	saves    []*save_section.Request
	listReq  *list_section_saves.Request
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{version: 1, sections: map[string]json.RawMessage{}}
}

func (f *fakeBackend) server() *Server {
	return NewServer(creatorFunc(func(context.Context) (string, error) { return "pkg-new", nil }),
		saverFunc(f.save), getterFunc(f.get), listerFunc(f.list), nil)
}

func (f *fakeBackend) save(_ context.Context, req *save_section.Request) (*save_section.Response, error) {
	f.saves = append(f.saves, req)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	if req.ExpectedVersion != 0 && req.ExpectedVersion != f.version {
		return nil, domain.ErrVersionConflict
	}
	f.version++
	f.sections[req.Section] = req.Data
	return &save_section.Response{Version: f.version, Changed: true}, nil
}

func (f *fakeBackend) get(_ context.Context, req *get_package.Request) (*contracts.PackageDTO, error) {
	if req.PackageID != "pkg-1" {
		return nil, domain.ErrPackageNotFound
	}
	return &contracts.PackageDTO{PackageID: "pkg-1", Status: "draft", Version: f.version, Sections: f.sections}, nil
}

func (f *fakeBackend) list(_ context.Context, req *list_section_saves.Request) ([]*contracts.SectionSaveDTO, error) {
	f.listReq = req
	return nil, nil
}

type creatorFunc func(context.Context) (string, error)

func (f creatorFunc) Execute(ctx context.Context) (string, error) { return f(ctx) }

type saverFunc func(context.Context, *save_section.Request) (*save_section.Response, error)

func (f saverFunc) Execute(ctx context.Context, req *save_section.Request) (*save_section.Response, error) {
	return f(ctx, req)
}

type getterFunc func(context.Context, *get_package.Request) (*contracts.PackageDTO, error)

func (f getterFunc) Execute(ctx context.Context, req *get_package.Request) (*contracts.PackageDTO, error) {
	return f(ctx, req)
}

type listerFunc func(context.Context, *list_section_saves.Request) ([]*contracts.SectionSaveDTO, error)

func (f listerFunc) Execute(ctx context.Context, req *list_section_saves.Request) ([]*contracts.SectionSaveDTO, error) {
	return f(ctx, req)
}

func TestServer_SaveSection(t *testing.T) {
	backend := newFakeBackend()
	h := backend.server().Handler()

	req := httptest.NewRequest(http.MethodPut, "/api/v1/scenario-packages/pkg-1/sections/basic",
		strings.NewReader(`{"version":1,"data":{"name":"Cruise","category":"boat"}}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result SaveSectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, SaveSectionResult{PackageID: "pkg-1", Section: "basic", Version: 2, Changed: true}, result)

	require.Len(t, backend.saves, 1)
	assert.Equal(t, "basic", backend.saves[0].Section)
	assert.JSONEq(t, `{"name":"Cruise","category":"boat"}`, string(backend.saves[0].Data))
}

func TestServer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
		code   string
		fields bool
	}{
		{name: "validation", err: &domain.ValidationError{Section: "basic", Fields: map[string][]string{"name": {"is required"}}}, status: 400, code: domain.CodeSectionInvalid, fields: true},
		{name: "malformed body", body: `{"version":`, status: 400, code: domain.CodePayloadMalformed},
		{name: "unknown field", body: `{"data":{},"extra":1}`, status: 400, code: domain.CodePayloadMalformed},
		{name: "unknown section", err: domain.ErrUnknownSection, status: 400, code: domain.CodeSectionUnknown},
		{name: "not found", err: domain.ErrPackageNotFound, status: 404, code: domain.CodePackageNotFound},
		{name: "conflict", err: domain.ErrVersionConflict, status: 409, code: domain.CodeVersionConflict},
		{name: "archived", err: domain.ErrPackageArchived, status: 409, code: domain.CodePackageArchived},
		{name: "internal", err: errors.New("spanner: session pool exhausted"), status: 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.saveErr = tt.err
			body := tt.body
			if body == "" {
				body = `{"data":{"name":"x","category":"y"}}`
			}
			rec := httptest.NewRecorder()
			backend.server().Handler().ServeHTTP(rec,
				httptest.NewRequest(http.MethodPut, "/api/v1/scenario-packages/pkg-1/sections/basic", strings.NewReader(body)))

			assert.Equal(t, tt.status, rec.Code)
			var env ErrorEnvelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Message)
			assert.Equal(t, tt.fields, len(env.Errors) > 0)
			if tt.status == 500 {
				assert.NotContains(t, env.Message, "spanner")
			}
		})
	}
}

func TestServer_GetPackage(t *testing.T) {
	backend := newFakeBackend()
	backend.sections["basic"] = json.RawMessage(`{"name":"Cruise","category":"boat"}`)
	h := backend.server().Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scenario-packages/pkg-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var dto contracts.PackageDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dto))
	assert.Equal(t, int64(1), dto.Version)
	assert.JSONEq(t, `{"name":"Cruise","category":"boat"}`, string(dto.Sections["basic"]))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scenario-packages/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ListSaves(t *testing.T) {
	backend := newFakeBackend()
	rec := httptest.NewRecorder()
	backend.server().Handler().ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/v1/scenario-packages/pkg-1/saves?section=addons&limit=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"saves":[]}`, rec.Body.String())
	assert.Equal(t, &list_section_saves.Request{PackageID: "pkg-1", Section: "addons", Limit: 5}, backend.listReq)
}

func TestServer_CreatePackage(t *testing.T) {
	rec := httptest.NewRecorder()
	newFakeBackend().server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scenario-packages", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"package_id":"pkg-new"}`, rec.Body.String())
}

func errValidation() error {
	return &domain.ValidationError{Section: "basic", Fields: map[string][]string{"name": {"is required"}}}
}
