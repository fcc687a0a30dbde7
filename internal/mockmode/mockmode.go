package mockmode

import (
	"os"
	"strings"
)

// EnvVar is the environment flag that turns on the simulated sensor feed.
const EnvVar = "CROPWATCH_MOCK_MODE"

// IsEnabled reports whether cropwatch is running in mock mode.
//
// This reads the environment variable instead of importing the mock package,
// so low-level packages can check it without a dependency cycle.
func IsEnabled() bool {
	return strings.TrimSpace(os.Getenv(EnvVar)) == "true"
}
