package gameconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/quasilyte/gdata"

	"github.com/ivlev/spritegrid/internal/animation"
)

// ErrNotFound is returned for unknown entity ids.
var ErrNotFound = errors.New("sprite animation not found")

// KV is the key-value persistence the document lives in. *gdata.Manager
// satisfies it; LoadItem returns nil data for a missing key.
type KV interface {
	LoadItem(key string) ([]byte, error)
	SaveItem(key string, data []byte) error
}

var _ KV = (*gdata.Manager)(nil)

// OpenKV opens the per-user gdata store for appName.
func OpenKV(appName string) (*gdata.Manager, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("open data store: %w", err)
	}
	return m, nil
}

// MemoryKV is a KV kept in a map.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string][]byte
	// Fail, when set, is returned from SaveItem.
	Fail error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string][]byte)}
}

func (m *MemoryKV) LoadItem(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryKV) SaveItem(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.items[key] = append([]byte(nil), data...)
	return nil
}

// Store owns the current document. Every mutation is persisted before it
// becomes visible; a failed write leaves the previous document in place.
type Store struct {
	mu     sync.RWMutex
	kv     KV
	key    string
	doc    Document
	newID  func() (string, error)
	now    func() time.Time
	logger *slog.Logger
}

type StoreOption func(*Store)

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// OpenStore loads the document under key, starting empty when none exists.
func OpenStore(kv KV, key string, newID func() (string, error), opts ...StoreOption) (*Store, error) {
	s := &Store{
		kv:     kv,
		key:    key,
		doc:    NewDocument(),
		newID:  newID,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}

	data, err := kv.LoadItem(key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	if data != nil {
		doc, err := decodeStored(data)
		if err != nil {
			return nil, err
		}
		s.doc = doc
	}
	return s, nil
}

// Document returns the current snapshot.
func (s *Store) Document() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc
}

func (s *Store) Entities() []animation.Entity {
	return s.Document().SpriteAnimations.All()
}

func (s *Store) Entity(id string) (animation.Entity, error) {
	e, ok := s.Document().SpriteAnimations.Get(id)
	if !ok {
		return animation.Entity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.Clone(), nil
}

// AddEntity appends e and records it in the activity log.
func (s *Store) AddEntity(e animation.Entity) error {
	if err := animation.ValidateAnimations(e.Animations); err != nil {
		return err
	}
	return s.mutate(func(doc Document) (Document, error) {
		doc.SpriteAnimations = doc.SpriteAnimations.Add(e.Clone())
		doc.ActivityLog = doc.ActivityLog.With(
			fmt.Sprintf("Created sprite animation: %s with %d sequences", e.Name, len(e.Animations)), s.now())
		return doc, nil
	})
}

// UpdateEntity overwrites the non-zero fields of patch onto entity id. A
// non-nil Animations must hold only non-empty sequences.
func (s *Store) UpdateEntity(id string, patch animation.Entity) (animation.Entity, error) {
	if patch.Animations != nil {
		if err := animation.ValidateAnimations(patch.Animations); err != nil {
			return animation.Entity{}, err
		}
	}
	var updated animation.Entity
	err := s.mutate(func(doc Document) (Document, error) {
		cur, ok := doc.SpriteAnimations.Get(id)
		if !ok {
			return doc, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		cur = cur.Clone()
		if name := strings.TrimSpace(patch.Name); name != "" {
			cur.Name = name
		}
		if patch.Sheet != "" {
			cur.Sheet = patch.Sheet
		}
		if patch.Animations != nil {
			cur.Animations = patch.Clone().Animations
		}
		if !patch.Meta.IsZero() {
			cur.Meta = patch.Meta
		}
		doc.SpriteAnimations, _ = doc.SpriteAnimations.Update(id, cur)
		updated = cur
		return doc, nil
	})
	return updated, err
}

// DeleteEntity removes id and records it in the activity log.
func (s *Store) DeleteEntity(id string) (animation.Entity, error) {
	var removed animation.Entity
	err := s.mutate(func(doc Document) (Document, error) {
		next, e, ok := doc.SpriteAnimations.Delete(id)
		if !ok {
			return doc, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		doc.SpriteAnimations = next
		doc.ActivityLog = doc.ActivityLog.With("Deleted sprite animation: "+e.Name, s.now())
		removed = e
		return doc, nil
	})
	return removed, err
}

// Import replaces the whole document with an exported one. Ids are
// regenerated.
func (s *Store) Import(data []byte) (Document, error) {
	doc, err := ParseDocument(data, s.newID)
	if err != nil {
		return Document{}, err
	}
	err = s.mutate(func(Document) (Document, error) { return doc, nil })
	return doc, err
}

func (s *Store) mutate(fn func(Document) (Document, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.doc)
	if err != nil {
		return err
	}
	data, err := next.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.kv.SaveItem(s.key, data); err != nil {
		s.logger.Error("persist document", "key", s.key, "error", err)
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	s.doc = next
	return nil
}
