package app

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// TestModeEnv names the variable that makes tbview and tbctl exit before
// opening Redis or calling the accounting API. Any value strconv.ParseBool
// accepts as true enables it.
const TestModeEnv = "TBVIEW_TEST_MODE"

var testMode struct {
	once sync.Once
	on   atomic.Bool
}

func testModeFromEnv() bool {
	enabled, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(TestModeEnv)))
	return err == nil && enabled
}

// InTestMode reports whether the binaries should skip runtime side effects.
func InTestMode() bool {
	testMode.once.Do(RefreshTestMode)
	return testMode.on.Load()
}

// RefreshTestMode re-reads TestModeEnv after the environment changed.
func RefreshTestMode() {
	testMode.on.Store(testModeFromEnv())
}
