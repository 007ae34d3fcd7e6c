package truststore

import (
	"context"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"veritas/internal/domain"
	"veritas/internal/infra/attestation/attesttest"
)

func pemBundle(t *testing.T, cas ...*attesttest.CA) []byte {
	t.Helper()
	var out []byte
	for _, ca := range cas {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: ca.DER})...)
	}
	return out
}

func testCA(t *testing.T, name string) *attesttest.CA {
	t.Helper()
	now := time.Now()
	return attesttest.NewCA(name, now.Add(-time.Hour), now.Add(24*time.Hour))
}

func TestStoreReplacePublishesVersionedSnapshot(t *testing.T) {
	store := NewStore()
	if v := store.Current().Version; v != 0 {
		t.Fatalf("fresh store version = %d, want 0", v)
	}

	first, err := store.Replace(pemBundle(t, testCA(t, "Root A")))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if first.Version != 1 || len(first.Roots) != 1 {
		t.Fatalf("got version=%d roots=%d, want 1 and 1", first.Version, len(first.Roots))
	}

	second, err := store.Replace(pemBundle(t, testCA(t, "Root B"), testCA(t, "Root C")))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if second.Version != 2 || len(second.Roots) != 2 {
		t.Fatalf("got version=%d roots=%d, want 2 and 2", second.Version, len(second.Roots))
	}
	if store.Current() != second {
		t.Fatal("Current should return the latest snapshot")
	}

	// The old snapshot a verification may still hold is untouched.
	if first.Version != 1 || first.Roots[0].Subject != "CN=Root A" {
		t.Fatal("earlier snapshot was mutated by a later Replace")
	}
}

func TestStoreReplaceRejectsBadBundle(t *testing.T) {
	store := NewStore()
	good, err := store.Replace(pemBundle(t, testCA(t, "Root A")))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	for name, bundle := range map[string][]byte{
		"garbage":  []byte("not pem at all"),
		"no certs": pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: []byte{0x01}}),
		"bad der":  pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{0xba, 0xad}}),
	} {
		if _, err := store.Replace(bundle); err == nil {
			t.Errorf("%s: Replace accepted an invalid bundle", name)
		}
	}
	if store.Current() != good {
		t.Fatal("failed Replace must leave the current snapshot in place")
	}
}

func TestParseRootsRejectsExpiredRoot(t *testing.T) {
	now := time.Now()
	expired := attesttest.NewCA("Expired Root", now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	if _, err := ParseRoots(pemBundle(t, expired), now); err == nil {
		t.Fatal("ParseRoots accepted an expired root")
	}
}

func TestRefresherSwapsOnSuccess(t *testing.T) {
	bundle := pemBundle(t, testCA(t, "Feed Root"))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write(bundle)
	}))
	defer server.Close()

	store := NewStore()
	r := NewRefresher(store, NewFeed(server.URL, server.Client()), time.Hour)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	snap := store.Current()
	if snap.Version != 1 || len(snap.Roots) != 1 || snap.Roots[0].Subject != "CN=Feed Root" {
		t.Fatalf("unexpected snapshot after refresh: %+v", snap)
	}
}

func TestRefresherKeepsOldSnapshotOnFeedFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	store := NewStore()
	good, err := store.Replace(pemBundle(t, testCA(t, "Seed Root")))
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	feed := NewFeed(server.URL, server.Client())
	feed.retryBase = time.Millisecond
	r := NewRefresher(store, feed, time.Hour)

	err = r.Refresh(context.Background())
	if !errors.Is(err, domain.ErrFeedUnavailable) {
		t.Fatalf("got %v, want ErrFeedUnavailable", err)
	}
	if calls.Load() != defaultRetryAttempts {
		t.Fatalf("feed called %d times, want %d", calls.Load(), defaultRetryAttempts)
	}
	if store.Current() != good {
		t.Fatal("failed refresh must keep the previous snapshot")
	}
}

func TestFeedRetriesTransientFailure(t *testing.T) {
	bundle := pemBundle(t, testCA(t, "Flaky Root"))
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(bundle)
	}))
	defer server.Close()

	feed := NewFeed(server.URL, server.Client())
	feed.retryBase = time.Millisecond
	data, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != string(bundle) {
		t.Fatal("fetched bundle does not match served bundle")
	}
}
