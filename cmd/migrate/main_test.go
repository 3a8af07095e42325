package main

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitDDLStatements(t *testing.T) {
	got := splitDDLStatements(`
-- first table
CREATE TABLE a (
  id STRING(36) NOT NULL,
) PRIMARY KEY (id);

CREATE INDEX idx_a ON a(id);
`)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (\nid STRING(36) NOT NULL,\n) PRIMARY KEY (id)", got[0])
	assert.Equal(t, "CREATE INDEX idx_a ON a(id)", got[1])
}

func TestSchemaMigration(t *testing.T) {
	content, err := os.ReadFile("../../migrations/001_scenario_packages.sql")
	require.NoError(t, err)

	stmts := splitDDLStatements(string(content))
	assert.Len(t, stmts, 5)
	assert.Contains(t, stmts[0], "CREATE TABLE scenario_packages")
	assert.Contains(t, stmts[2], "CREATE TABLE outbox_events")
}
