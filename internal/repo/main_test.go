package repo_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pkordes/mapmates/backend/testutil"
)

// TestMain migrates the integration database once per test binary. Without
// TEST_DATABASE_URL only the pgxmock tests run.
func TestMain(m *testing.M) {
	dsn := os.Getenv(testutil.DSNEnv)
	if dsn == "" {
		os.Exit(m.Run())
	}

	n, err := testutil.Migrate(context.Background(), dsn)
	if err != nil {
		log.Fatalf("TestMain: %v", err)
	}
	log.Printf("TestMain: applied %d migrations", n)

	os.Exit(m.Run())
}
