// Package storage defines the spritesheet blob store contract.
package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when a sheet id has no stored blob.
var ErrNotFound = errors.New("sheet not found")

// SheetRecord is one stored spritesheet upload.
type SheetRecord struct {
	ID        int64
	Name      string
	Data      []byte
	CreatedAt time.Time
}

// SheetStore persists raw uploads and hands back a numeric id.
type SheetStore interface {
	StoreSheet(ctx context.Context, name string, data []byte) (int64, error)
	Sheet(ctx context.Context, id int64) (SheetRecord, error)
}

// MemoryStore is an in-process SheetStore.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	sheets map[int64]SheetRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sheets: make(map[int64]SheetRecord)}
}

func (m *MemoryStore) StoreSheet(ctx context.Context, name string, data []byte) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.sheets[m.nextID] = SheetRecord{
		ID:        m.nextID,
		Name:      name,
		Data:      append([]byte(nil), data...),
		CreatedAt: time.Now().UTC(),
	}
	return m.nextID, nil
}

func (m *MemoryStore) Sheet(ctx context.Context, id int64) (SheetRecord, error) {
	if err := ctx.Err(); err != nil {
		return SheetRecord{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.sheets[id]
	if !ok {
		return SheetRecord{}, ErrNotFound
	}
	rec.Data = append([]byte(nil), rec.Data...)
	return rec, nil
}
