package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"strikebot/internal/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	in := model.DailyStats{Date: "2026-08-29", Trades: 3, PnLCents: -120}
	if err := st.SetJSON(ctx, DailyStatsKey("KXBTCUP"), in); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	var out model.DailyStats
	ok, err := st.GetJSON(ctx, DailyStatsKey("KXBTCUP"), &out)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if !ok {
		t.Fatal("key missing after write")
	}
	if out != in {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
}

func TestMemoryStoreMissingKey(t *testing.T) {
	var out model.DailyStats
	ok, err := NewMemoryStore().GetJSON(context.Background(), "nope", &out)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if ok {
		t.Fatal("missing key reported as present")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	if err := st.SetJSON(ctx, "k", 42); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var v int
	if ok, _ := st.GetJSON(ctx, "k", &v); ok {
		t.Fatal("key present after delete")
	}
	// Deleting a missing key is not an error.
	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestKeysAreSeriesScoped(t *testing.T) {
	if PositionKey("A") == PositionKey("B") {
		t.Fatal("position keys collide across series")
	}
	if PositionKey("A") == PendingOrderKey("A") {
		t.Fatal("position and pending keys collide")
	}
}

func TestTradeJournalAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "trades.jsonl")
	j, err := NewTradeJournal(path)
	if err != nil {
		t.Fatalf("NewTradeJournal: %v", err)
	}
	j.Record(model.ClosedTrade{Ticker: "KXBTCUP-26AUG2914", Result: model.ResultWin, PnLCents: 600})
	j.Record(model.ClosedTrade{Ticker: "KXBTCUP-26AUG2915", Result: model.ResultLoss, PnLCents: -200})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("journal has %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "KXBTCUP-26AUG2914") {
		t.Fatalf("first line = %s", lines[0])
	}
}
