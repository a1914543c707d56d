// Package cache holds small in-process caches and the janitor that expires
// their entries.
package cache

import (
	"context"
	"time"
)

// Cleaner is implemented by caches whose entries expire.
type Cleaner interface {
	CleanExpired() int
}

// RunJanitor calls CleanExpired on every cache each interval until ctx is
// cancelled. onClean, when set, receives the number of entries removed per
// tick.
func RunJanitor(ctx context.Context, interval time.Duration, onClean func(removed int), caches ...Cleaner) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			total := 0
			for _, c := range caches {
				total += c.CleanExpired()
			}
			if onClean != nil && total > 0 {
				onClean(total)
			}
		}
	}
}
