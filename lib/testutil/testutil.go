package testutil

import (
	"testing"

	"bidwatch/lib/telemetry"
)

// Setup initializes slog and telemetry for a package's tests.
func Setup(t testing.TB, name string) func() {
	return telemetry.SetupForTesting(t, name)
}
