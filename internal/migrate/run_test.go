package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersions(t *testing.T) {
	got, err := Versions()
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_users", "0002_user_sessions"}, got)
}

func TestEmbeddedMigrationsReadable(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	for _, v := range versions {
		body, err := migrationsFS.ReadFile("migrations/" + v + ".sql")
		require.NoError(t, err, v)
		assert.NotEmpty(t, body, v)
	}
}
