package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	names, err := Migrations()
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_init.sql"}, names)
}
