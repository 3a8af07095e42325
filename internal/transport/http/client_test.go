package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/procat-editor/internal/app/editor/errclass"
)

func TestSectionClient_SaveFunc(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.server().Handler())
	defer srv.Close()

	client := NewSectionClient(srv.URL+"/", srv.Client())
	dto, err := client.Load(context.Background(), "pkg-1")
	require.NoError(t, err)
	assert.Equal(t, "pkg-1", dto.PackageID)
	assert.Equal(t, int64(1), client.Version("pkg-1"))

	save := client.SaveFunc("pkg-1", "basic")
	require.NoError(t, save(context.Background(), map[string]string{"name": "Cruise", "category": "boat"}))
	assert.Equal(t, int64(2), client.Version("pkg-1"))

	require.NoError(t, client.SaveFunc("pkg-1", "addons")(context.Background(), []map[string]any{{"name": "Towel"}}))
	assert.Equal(t, int64(3), client.Version("pkg-1"))

	require.Len(t, backend.saves, 2)
	assert.Equal(t, int64(1), backend.saves[0].ExpectedVersion)
	assert.Equal(t, int64(2), backend.saves[1].ExpectedVersion)
}

func TestSectionClient_ErrorsClassify(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.server().Handler())
	defer srv.Close()
	client := NewSectionClient(srv.URL, srv.Client())

	t.Run("conflict", func(t *testing.T) {
		backend.version = 9 // someone else saved
		_, _ = client.Load(context.Background(), "pkg-1")
		backend.version = 10

		err := client.SaveFunc("pkg-1", "basic")(context.Background(), map[string]string{"name": "a", "category": "b"})
		var re *errclass.ResponseError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusConflict, re.StatusCode)

		ce := errclass.Classify(err)
		assert.Equal(t, errclass.KindConflict, ce.Kind)
		assert.Equal(t, "VERSION_CONFLICT", ce.Code)
		assert.Equal(t, "Someone else saved this scenario package while you were editing.", ce.Message)
	})

	t.Run("validation", func(t *testing.T) {
		backend.saveErr = errValidation()
		defer func() { backend.saveErr = nil }()

		err := client.SaveFunc("pkg-1", "basic")(context.Background(), map[string]string{"name": ""})
		ce := errclass.Classify(err)
		assert.Equal(t, errclass.KindValidation, ce.Kind)
		assert.Equal(t, 400, ce.Status)
		assert.Equal(t, map[string][]string{"name": {"is required"}}, ce.FieldErrors)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := client.Load(context.Background(), "missing")
		assert.Equal(t, errclass.KindNotFound, errclass.Classify(err).Kind)
	})

	t.Run("unreachable", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		_, err := NewSectionClient(dead.URL, nil).Load(context.Background(), "pkg-1")
		require.Error(t, err)
		assert.Equal(t, errclass.KindNetwork, errclass.Classify(err).Kind)
	})
}

func TestSectionClient_SaveRequiresLoad(t *testing.T) {
	backend := newFakeBackend()
	srv := httptest.NewServer(backend.server().Handler())
	defer srv.Close()
	client := NewSectionClient(srv.URL, srv.Client())

	err := client.SaveFunc("pkg-1", "basic")(context.Background(), map[string]string{"name": "a", "category": "b"})
	assert.ErrorIs(t, err, ErrPackageNotLoaded)
	assert.Empty(t, backend.saves, "nothing is sent without a known version")

	_, err = client.Load(context.Background(), "pkg-1")
	require.NoError(t, err)
	require.NoError(t, client.SaveFunc("pkg-1", "basic")(context.Background(), map[string]string{"name": "a", "category": "b"}))
	require.Len(t, backend.saves, 1)
	assert.Equal(t, int64(1), backend.saves[0].ExpectedVersion)
}
