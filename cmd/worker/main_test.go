package main

import (
	"testing"

	_ "github.com/bayala/bayala-stock/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	// Would dial Redis and exit the process if test mode were not detected.
	main()
}
