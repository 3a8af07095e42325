package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/procat-editor/internal/pkg/clock"
	"github.com/light-bringer/procat-editor/internal/pkg/logging"
)

func TestWire(t *testing.T) {
	opts := Wire(nil, clock.NewMockClock(time.Now()), logging.Discard())
	require.NotNil(t, opts.HTTPServer)
	require.NotNil(t, opts.LocalSaver)
	require.NotNil(t, opts.SaveSection)

	// Routing is in place even without a database behind it.
	rec := httptest.NewRecorder()
	opts.HTTPServer.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/scenario-packages/pkg-1", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	opts.Close()
}
