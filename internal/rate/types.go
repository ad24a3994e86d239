package rate

import (
	"fmt"
	"time"
)

// Limits is the last rate-limit window observed from response headers.
type Limits struct {
	Limit      int
	Remaining  int
	Reset      time.Time
	LastStatus int
}

// LimitError is returned when a call is blocked before reaching the network
// because the advertised budget is exhausted.
type LimitError struct {
	Provider string
	RetryAt  time.Time
}

func (e LimitError) Error() string {
	if e.RetryAt.IsZero() {
		return fmt.Sprintf("%s rate limited", e.Provider)
	}
	return fmt.Sprintf("%s rate limited (retry at %s)", e.Provider, e.RetryAt.UTC().Format(time.RFC3339))
}
