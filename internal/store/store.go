// Package store persists per-series engine state as whole JSON documents.
// The store is last-write-wins with no transactions; the caller guarantees
// a single writer per series at a time.
package store

import (
	"context"
	"fmt"
)

// Store is the JSON key-value boundary the engine persists through.
type Store interface {
	// GetJSON unmarshals the value at key into dest, reporting whether the
	// key existed.
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	// SetJSON marshals value and writes it at key, replacing any previous
	// document.
	SetJSON(ctx context.Context, key string, value any) error
	// Delete removes key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Key builders for the per-series documents plus the shared trade history.

func PositionKey(series string) string     { return fmt.Sprintf("position:%s", series) }
func PendingOrderKey(series string) string { return fmt.Sprintf("pendingOrder:%s", series) }
func DailyStatsKey(series string) string   { return fmt.Sprintf("dailyStats:%s", series) }
func LearnedKey(series string) string      { return fmt.Sprintf("learnedWeights:%s", series) }
func LastTradeKey(series string) string    { return fmt.Sprintf("lastTradeTs:%s", series) }

// TradeHistoryKey is shared across series; the engine keeps it bounded.
const TradeHistoryKey = "tradeHistory"
