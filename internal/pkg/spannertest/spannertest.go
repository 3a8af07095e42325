// Package spannertest provides helpers for tests that run against the
// Spanner emulator. They are used by tests built with the integration tag.
package spannertest

import (
	"context"
	"fmt"
	"os"
	"testing"

	"cloud.google.com/go/spanner"
	"github.com/stretchr/testify/require"

	"github.com/light-bringer/procat-editor/internal/models/m_outbox"
	"github.com/light-bringer/procat-editor/internal/models/m_scenario_package"
)

// DefaultDatabase is the emulator database created by cmd/migrate for tests.
const DefaultDatabase = "projects/test-project/instances/dev-instance/databases/scenario-catalog-test"

// Setup creates a client on a clean database and returns a cleanup function.
// The test is skipped when no emulator is configured.
func Setup(t *testing.T) (*spanner.Client, func()) {
	t.Helper()
	if os.Getenv("SPANNER_EMULATOR_HOST") == "" {
		t.Skip("SPANNER_EMULATOR_HOST not set")
	}

	client, err := spanner.NewClient(context.Background(), Database())
	require.NoError(t, err, "failed to create Spanner client")

	Clean(t, client)
	return client, func() {
		Clean(t, client)
		client.Close()
	}
}

// Database returns the test database, overridable with SPANNER_TEST_DATABASE.
func Database() string {
	if db := os.Getenv("SPANNER_TEST_DATABASE"); db != "" {
		return db
	}
	return DefaultDatabase
}

// Clean truncates every table for test isolation.
func Clean(t *testing.T, client *spanner.Client) {
	t.Helper()
	_, err := client.Apply(context.Background(), []*spanner.Mutation{
		spanner.Delete(m_outbox.TableName, spanner.AllKeys()),
		spanner.Delete(m_scenario_package.TableName, spanner.AllKeys()),
	})
	require.NoError(t, err, "failed to clean database")
}

// AssertRowCount asserts the number of rows in a table.
func AssertRowCount(t *testing.T, client *spanner.Client, table string, expected int) {
	t.Helper()

	iter := client.Single().Query(context.Background(), spanner.Statement{
		SQL: fmt.Sprintf("SELECT COUNT(*) FROM %s", table),
	})
	defer iter.Stop()

	row, err := iter.Next()
	require.NoError(t, err, "failed to query row count")

	var count int64
	require.NoError(t, row.Columns(&count), "failed to parse count")
	require.Equal(t, int64(expected), count, "unexpected row count in table %s", table)
}
