package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"strikebot/internal/model"
)

// TradeJournal appends closed trades as JSON lines for offline analysis,
// independent of the bounded history kept in the state store.
type TradeJournal struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewTradeJournal creates/opens the target file and returns a journal.
func NewTradeJournal(path string) (*TradeJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &TradeJournal{file: file, enc: json.NewEncoder(file)}, nil
}

// Record writes a single closed trade to the underlying JSONL file.
func (j *TradeJournal) Record(trade model.ClosedTrade) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_ = j.enc.Encode(trade)
}

// Close flushes and closes the file handle.
func (j *TradeJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	err := j.file.Close()
	j.file = nil
	return err
}
