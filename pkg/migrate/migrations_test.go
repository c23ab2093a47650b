package migrate_test

import (
	"os"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agrolease/agrolease-backend/pkg/migrate"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	source, err := migrate.Source(migrate.DefaultDir)
	require.NoError(t, err)
	require.NoError(t, migrate.Validate(source))

	entries, err := fs.ReadDir(source, ".")
	require.NoError(t, err)
	require.Len(t, entries, 4)
}

func TestLeaseMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_lease_requests_and_invitations.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS lease_requests",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_lease_requests_land_tenant ON lease_requests (land_id, tenant_id)",
		"CHECK (status IN ('pending', 'accepted', 'rejected'))",
		"CREATE TABLE IF NOT EXISTS invitations",
		"DROP TABLE IF EXISTS invitations",
		"DROP TABLE IF EXISTS lease_requests",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCredentialEmailIsUnique(t *testing.T) {
	content := readMigration(t, "*_create_users_and_credentials.sql")
	require.Contains(t, content, "CREATE UNIQUE INDEX IF NOT EXISTS ux_credentials_email ON credentials (email)")
}

func TestCreateWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	path, err := migrate.Create(dir, "Add Lease Notes!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260301120000_add_lease_notes.sql"), path)
	require.NoError(t, migrate.Validate(os.DirFS(dir)))

	_, err = migrate.Create(dir, "add lease notes", now)
	require.Error(t, err, "same version must not be overwritten")

	_, err = migrate.Create(dir, "!!!", now)
	require.Error(t, err)
}

func TestValidateDirRejectsBadName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "leases.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.Validate(os.DirFS(dir)))
}

func TestValidateRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_leases.sql"), []byte("-- +goose Up\n"), 0o644))
	require.ErrorContains(t, migrate.Validate(os.DirFS(dir)), "goose Down")
}

func TestSourceUsesDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	source, err := migrate.Source(dir)
	require.NoError(t, err)
	entries, err := fs.ReadDir(source, ".")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	require.NoError(t, err)
	require.NotEmpty(t, matches, "no migration matching %s", pattern)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}
