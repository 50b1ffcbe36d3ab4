package fetch

import (
	"errors"
	"math/rand"
	"time"
)

const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 15 * time.Second
)

// nextDelay computes the backoff before retry number attempt (1-based).
// Exponential doubling with up to 25% jitter, capped at backoffCap.
func nextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := backoffBase << uint(attempt-1)
	if d > backoffCap || d <= 0 {
		d = backoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(d)/4 + 1))
	return d + jitter
}

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}
