package app

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/testgrid/internal/registry"
	"github.com/specialistvlad/testgrid/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. The app logs
// at debug level into the returned buffer and is closed when the test ends.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	if cfg.Workers == 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = 8
	}
	testApp, err := NewApp(context.Background(), logBuffer, cfg, modules...)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}

	t.Cleanup(func() {
		_ = testApp.Close(context.Background())
		if os.Getenv("TESTGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
