package trace

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"tradefloor/internal/storage"
)

func TestNewTraceID(t *testing.T) {
	id := NewTraceID("Warren")

	if !strings.HasPrefix(id, "trace_warren0") {
		t.Fatalf("unexpected prefix in %q", id)
	}
	if len(id) != len("trace_")+32 {
		t.Fatalf("expected 32 characters after the prefix, got %d", len(id)-len("trace_"))
	}

	// IDs are unique.
	if NewTraceID("Warren") == id {
		t.Fatal("expected distinct IDs for the same tag")
	}
}

func TestTraderName(t *testing.T) {
	if got := TraderName(NewTraceID("Cathie")); got != "cathie" {
		t.Fatalf("TraderName = %q", got)
	}
	if got := TraderName("garbage"); got != "" {
		t.Fatalf("expected empty name for a malformed ID, got %q", got)
	}
}

func TestSpansWriteToLog(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	tracer := NewTracer(store)
	traceID := NewTraceID("ray")

	session := tracer.StartTrace(ctx, traceID, "trading")
	span := tracer.StartSpan(ctx, traceID, "function", "buy_shares")
	span.End(ctx, errors.New("insufficient funds"))
	session.End(ctx, nil)

	entries, err := store.ReadLog(ctx, "ray", 10)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	if entries[0].Message != "Started trace trading" || entries[0].Type != "trace" {
		t.Fatalf("unexpected first entry %+v", entries[0])
	}
	if entries[1].Message != "Started function buy_shares" {
		t.Fatalf("unexpected second entry %+v", entries[1])
	}
	if !strings.Contains(entries[2].Message, "insufficient funds") {
		t.Fatalf("span error missing from %q", entries[2].Message)
	}
	if entries[3].Message != "Ended trace trading" {
		t.Fatalf("unexpected last entry %+v", entries[3])
	}
}

func TestSpanWithoutTraderNameIsSilent(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	tracer := NewTracer(store)
	span := tracer.StartSpan(ctx, "malformed-id", "function", "noop")
	span.End(ctx, nil)

	entries, err := store.ReadLog(ctx, "", 10)
	if err != nil {
		t.Fatalf("ReadLog: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}
