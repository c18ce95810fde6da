package app

import (
	"os"
	"strconv"
)

// TestModeEnv makes both binaries exit before touching Postgres, Redis or
// the backend. The testing package sets it for every test binary.
const TestModeEnv = "GATRIX_TEST_MODE"

// InTestMode reports whether TestModeEnv holds a true value.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
