// Package memory is an in-process record store used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cashflow/internal/core"
	"cashflow/internal/store"
)

type Store struct {
	mu         sync.Mutex
	txs        []core.Transaction
	categories []core.Category
	templates  []core.BillTemplate
	settings   map[string]core.Settings
	now        func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{settings: map[string]core.Settings{}, now: time.Now}
}

func (s *Store) ListTransactions(_ context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, userID, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(userID, id)
	if i < 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	return s.txs[i], nil
}

func (s *Store) InsertTransactions(_ context.Context, batch []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range batch {
		s.txs = append(s.txs, s.stamp(tx))
	}
	return nil
}

func (s *Store) InsertMissingBySourceKey(_ context.Context, batch []core.Transaction) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var inserted []core.Transaction
	for _, tx := range batch {
		if tx.SourceKey != "" && s.hasSourceKey(tx.UserID, tx.SourceKey) {
			continue
		}
		tx = s.stamp(tx)
		s.txs = append(s.txs, tx)
		inserted = append(inserted, tx)
	}
	return inserted, nil
}

func (s *Store) hasSourceKey(userID, key string) bool {
	for _, t := range s.txs {
		if t.UserID == userID && t.SourceKey == key {
			return true
		}
	}
	return false
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, p store.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(userID, id)
	if i < 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	s.txs[i] = p.Apply(s.txs[i])
	return s.txs[i], nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.txIndex(userID, id)
	if i < 0 {
		return store.ErrNotFound
	}
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	return nil
}

func (s *Store) ListCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.categories {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) SaveCategory(_ context.Context, c core.Category) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
		s.categories = append(s.categories, c)
		return c, nil
	}
	for i := range s.categories {
		if s.categories[i].ID == c.ID {
			if s.categories[i].UserID != c.UserID {
				return core.Category{}, store.ErrNotFound
			}
			s.categories[i] = c
			return c, nil
		}
	}
	s.categories = append(s.categories, c)
	return c, nil
}

func (s *Store) DeleteCategory(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID == id && c.UserID == userID {
			s.categories = append(s.categories[:i], s.categories[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) GetSettings(_ context.Context, userID string) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.settings[userID]
	if !ok {
		return core.Settings{}, store.ErrNotFound
	}
	return st, nil
}

func (s *Store) UpsertSettings(_ context.Context, st core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[st.UserID] = st
	return nil
}

func (s *Store) ListTemplates(_ context.Context, userID string) ([]core.BillTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.BillTemplate
	for _, t := range s.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) SaveTemplate(_ context.Context, t core.BillTemplate) (core.BillTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
		s.templates = append(s.templates, t)
		return t, nil
	}
	for i := range s.templates {
		if s.templates[i].ID == t.ID {
			if s.templates[i].UserID != t.UserID {
				return core.BillTemplate{}, store.ErrNotFound
			}
			s.templates[i] = t
			return t, nil
		}
	}
	s.templates = append(s.templates, t)
	return t, nil
}

func (s *Store) DeleteTemplate(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.templates {
		if t.ID == id && t.UserID == userID {
			s.templates = append(s.templates[:i], s.templates[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) TemplateOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, t := range s.templates {
		if _, ok := seen[t.UserID]; ok {
			continue
		}
		seen[t.UserID] = struct{}{}
		out = append(out, t.UserID)
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) txIndex(userID, id string) int {
	for i, tx := range s.txs {
		if tx.ID == id && tx.UserID == userID {
			return i
		}
	}
	return -1
}

func (s *Store) stamp(tx core.Transaction) core.Transaction {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now()
	}
	return tx
}
