package test

import (
	"os"
	"testing"
)

// GetPostgresDSN returns the DSN of the PostgreSQL instance used for testing.
// Tests against PostgreSQL are skipped unless POSTGRES_TEST_DSN is set.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN is not set")
	}
	return dsn
}
