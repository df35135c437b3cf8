package store

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

func TestMigrateURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/grocer?sslmode=disable", MigrateURL("postgres://u:p@db:5432/grocer?sslmode=disable"))
	require.Equal(t, "pgx5://db/grocer", MigrateURL("postgresql://db/grocer"))
	require.Equal(t, "pgx5://db/grocer", MigrateURL("pgx5://db/grocer"))
}

func TestUUIDRoundTrip(t *testing.T) {
	id := NewUUID()
	parsed, err := ToUUID(UUIDString(id))
	require.NoError(t, err)
	require.Equal(t, id, parsed)

	_, err = ToUUID("not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidUUID)
	require.Empty(t, UUIDString(pgtype.UUID{}))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.Contains(t, names, "000001_init.up.sql")
	require.Contains(t, names, "000001_init.down.sql")
}
