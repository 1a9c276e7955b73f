package marker

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "marker.db")
	store, err := OpenPath(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestLastProcessedAbsentOnFreshStore(t *testing.T) {
	store, _ := openTestStore(t)

	got, err := store.LastProcessed(context.Background())
	if err != nil {
		t.Fatalf("LastProcessed: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty marker, got %q", got)
	}
}

func TestRecordDeliveryAdvancesMarker(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	if err := store.RecordDelivery(ctx, "https://demo.substack.com/p/one", "New post", "<p>one</p>"); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}
	if err := store.RecordDelivery(ctx, "https://demo.substack.com/p/two", "New post", "<p>two</p>"); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}

	got, err := store.LastProcessed(ctx)
	if err != nil {
		t.Fatalf("LastProcessed: %v", err)
	}
	if got != "https://demo.substack.com/p/two" {
		t.Fatalf("unexpected marker: %q", got)
	}

	deliveries, err := store.Deliveries(ctx, 10)
	if err != nil {
		t.Fatalf("Deliveries: %v", err)
	}
	if len(deliveries) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(deliveries))
	}
	if deliveries[0].PostURL != "https://demo.substack.com/p/two" {
		t.Fatalf("expected newest first, got %q", deliveries[0].PostURL)
	}
	if deliveries[0].DeliveredAt.IsZero() {
		t.Fatal("expected parsed delivery timestamp")
	}
}

func TestMarkerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "marker.db")

	store, err := OpenPath(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.RecordDelivery(ctx, "https://demo.substack.com/p/one", "s", "b"); err != nil {
		t.Fatalf("RecordDelivery: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	reopened, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.LastProcessed(ctx)
	if err != nil {
		t.Fatalf("LastProcessed after reopen: %v", err)
	}
	if got != "https://demo.substack.com/p/one" {
		t.Fatalf("marker lost across reopen: %q", got)
	}
}

func TestDeliveriesLimit(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	for _, url := range []string{"a", "b", "c"} {
		if err := store.RecordDelivery(ctx, "https://demo.substack.com/p/"+url, "s", "b"); err != nil {
			t.Fatalf("RecordDelivery: %v", err)
		}
	}

	deliveries, err := store.Deliveries(ctx, 2)
	if err != nil {
		t.Fatalf("Deliveries: %v", err)
	}
	if len(deliveries) != 2 {
		t.Fatalf("expected limit applied, got %d", len(deliveries))
	}
}
