package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("SCOLARIA_TEST_MODE", "1")
		if os.Getenv("SCHOOL_YEAR") == "" {
			_ = os.Setenv("SCHOOL_YEAR", "2025/2026")
		}
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
