// Package guard switches entrypoints into test mode. Entrypoint tests import
// it for its side effect before calling main.
package guard

import (
	"os"

	"github.com/bayala/bayala-stock/internal/app"
)

func init() {
	if _, set := os.LookupEnv(app.TestModeEnv); !set {
		_ = os.Setenv(app.TestModeEnv, "1")
	}
}
