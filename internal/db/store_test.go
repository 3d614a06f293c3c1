package db

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := New(context.Background(), url)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestFindOrCreateClientIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	email := fmt.Sprintf("test-%s@example.com", uuid.NewString())

	first, created, err := store.FindOrCreateClient(ctx, email, "Test Client")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if !created {
		t.Fatal("expected first call to create the client")
	}

	// Case and whitespace variants of the same address must resolve to
	// the same row.
	variant := "  " + toUpperFirst(email) + " "
	second, created, err := store.FindOrCreateClient(ctx, variant, "Other Name")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created {
		t.Fatal("expected second call to find the existing client")
	}
	if second.ID != first.ID {
		t.Fatalf("got a different client: %s vs %s", second.ID, first.ID)
	}
}

func toUpperFirst(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func TestClientEmailUniqueAcrossCase(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	email := fmt.Sprintf("test-%s@example.com", uuid.NewString())

	if _, _, err := store.FindOrCreateClient(ctx, email, "Test Client"); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A writer that skips the app's normalization must still be unable
	// to insert a case-variant duplicate.
	_, err := store.Pool.Exec(ctx, `
		INSERT INTO clients (id, email, name, status, created_at, updated_at)
		VALUES ($1, $2, '', 'lead', NOW(), NOW())
	`, uuid.NewString(), strings.ToUpper(email))
	if err == nil {
		t.Fatal("expected unique violation for case-variant email")
	}
}

func TestClaimMessageOnce(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	messageID := "test-" + uuid.NewString()

	claimed, err := store.ClaimMessage(ctx, messageID, "run-a")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to win")
	}

	claimed, err = store.ClaimMessage(ctx, messageID, "run-b")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to lose")
	}
}

func TestRunLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	runID, err := store.CreateRun(ctx)
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if err := store.FinishRun(ctx, runID, "SUCCESS", 3, 2, 1, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("finish run: %v", err)
	}

	latest, err := store.GetLatestRun(ctx)
	if err != nil {
		t.Fatalf("get latest run: %v", err)
	}
	if latest.ID != runID {
		t.Fatalf("latest run = %s, want %s", latest.ID, runID)
	}
}

func TestAnalyticsQueryShape(t *testing.T) {
	store := testStore(t)

	out, err := store.Analytics(context.Background(), time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("analytics: %v", err)
	}
	for _, key := range []string{"runs", "communications", "sentiment", "tickets_by_priority"} {
		if _, ok := out[key]; !ok {
			t.Fatalf("analytics missing %q section: %v", key, out)
		}
	}
}
