package truststore

import (
	"context"
	"log"
	"time"
)

// Refresher periodically replaces the store's snapshot from the feed. A
// failed cycle logs and keeps serving the previous snapshot.
type Refresher struct {
	Store    *Store
	Feed     *Feed
	Interval time.Duration
}

func NewRefresher(store *Store, feed *Feed, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Refresher{Store: store, Feed: feed, Interval: interval}
}

// Run refreshes on a fixed interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				log.Printf("truststore: scheduled refresh failed, keeping snapshot v%d: %v",
					r.Store.Current().Version, err)
			}
		}
	}
}

// Refresh fetches the feed once and swaps in the parsed snapshot. Also used
// directly by the admin refresh endpoint.
func (r *Refresher) Refresh(ctx context.Context) error {
	bundle, err := r.Feed.Fetch(ctx)
	if err != nil {
		return err
	}
	snap, err := r.Store.Replace(bundle)
	if err != nil {
		return err
	}
	log.Printf("truststore: published snapshot v%d with %d roots", snap.Version, len(snap.Roots))
	return nil
}
