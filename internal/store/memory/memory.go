// Package memory is an in-memory store adapter with the same semantics as
// the sqlite one. Used for tests and the "memory" data backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"finwatch/internal/core"
	"finwatch/internal/store"
)

type Store struct {
	mu       sync.RWMutex
	users    map[string]core.User
	expenses map[string][]core.Expense // keyed by user id
	ledger   map[string]time.Time      // keyed by user id + "|" + period
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]core.User),
		expenses: make(map[string][]core.Expense),
		ledger:   make(map[string]time.Time),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateUser(_ context.Context, u core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return core.ErrEmailTaken
		}
	}
	s.users[u.ID] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (s *Store) ListUsers(_ context.Context) ([]core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]core.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *Store) CreateExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.UserID] = append(s.expenses[e.UserID], e)
	return nil
}

func (s *Store) ListExpenses(_ context.Context, userID string, p core.Period) ([]core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Expense
	for _, e := range s.expenses[userID] {
		if p.Contains(e.SpentAt) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpentAt.After(out[j].SpentAt) })
	return out, nil
}

func (s *Store) CategoryTotals(_ context.Context, userID string, p core.Period) ([]core.CategoryTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byCategory := make(map[core.Category]*core.CategoryTotal)
	for _, e := range s.expenses[userID] {
		if !p.Contains(e.SpentAt) {
			continue
		}
		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &core.CategoryTotal{Category: e.Category}
			byCategory[e.Category] = ct
		}
		ct.Total.Cents += e.Amount.Cents
		ct.Count++
	}

	totals := make([]core.CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		totals = append(totals, *ct)
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Category < totals[j].Category })
	return totals, nil
}

func (s *Store) HasSent(_ context.Context, userID, periodKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ledger[userID+"|"+periodKey]
	return ok, nil
}

func (s *Store) RecordSent(_ context.Context, userID, periodKey string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID + "|" + periodKey
	if _, ok := s.ledger[key]; ok {
		return nil
	}
	s.ledger[key] = at
	return nil
}

func (s *Store) PruneBefore(_ context.Context, periodKey string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned int64
	for key := range s.ledger {
		period := key[strings.LastIndex(key, "|")+1:]
		if period < periodKey {
			delete(s.ledger, key)
			pruned++
		}
	}
	return pruned, nil
}

// LedgerSize reports how many ledger entries exist. Test helper.
func (s *Store) LedgerSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ledger)
}
