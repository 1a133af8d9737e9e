package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesOrdered(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	assert.Equal(t, "migrations/0001_events.sql", files[0])
	for i := 1; i < len(files); i++ {
		assert.Less(t, files[i-1], files[i])
	}
}

func TestMigrationsDeclareRosterConstraint(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/0001_events.sql")
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "UNIQUE (event_id, user_id)"))
	assert.True(t, strings.Contains(string(body), "booked_count >= 0"))
}
