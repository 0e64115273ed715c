package testsupport

import (
	"context"
	"testing"

	"chyron/internal/catalog"
	"chyron/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewVideo inserts a fresh uploaded video for tests using the provided store.
func NewVideo(t testing.TB, store *catalog.Store, sourceRef, title string) *catalog.Video {
	t.Helper()

	video, err := store.InsertVideo(context.Background(), sourceRef, title)
	if err != nil {
		t.Fatalf("store.InsertVideo: %v", err)
	}
	return video
}
