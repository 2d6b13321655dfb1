package app

import (
	"os"
	"strconv"
)

// TestModeEnv keeps the entrypoints from dialing Redis, Postgres and the
// remote service when set to a true value.
const TestModeEnv = "BAYALA_TEST_MODE"

// InTestMode reads TestModeEnv. Unparseable values count as false.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}
