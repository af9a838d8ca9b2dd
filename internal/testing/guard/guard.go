// Package guard switches binaries into test mode when imported by tests so
// no Redis, Postgres or scheduler connection is attempted.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FIELDOPS_TEST_MODE") == "" {
			_ = os.Setenv("FIELDOPS_TEST_MODE", "1")
		}
		if os.Getenv("FIELD_API_BASE_URL") == "" {
			_ = os.Setenv("FIELD_API_BASE_URL", "http://127.0.0.1:0")
		}
	})
}
