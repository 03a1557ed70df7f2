package helpers

import (
	"strings"
	"time"

	"github.com/juju/errors"
)

// FoldErrors squashes a batch of errors into one, skipping nils.
// Returns nil when nothing actually failed.
func FoldErrors(errs []error) error {
	ss := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			ss = append(ss, e.Error())
		}
	}
	if len(ss) == 0 {
		return nil
	}
	return errors.Errorf(strings.Join(ss, "\n"))
}

// IntSecondDefault converts config integer seconds, zero means def.
func IntSecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Second
}

// IntMillisecondDefault converts config integer milliseconds, zero means def.
func IntMillisecondDefault(x int, def time.Duration) time.Duration {
	if x == 0 {
		return def
	}
	return time.Duration(x) * time.Millisecond
}
