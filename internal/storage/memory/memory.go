// Package memory implements the storage interfaces in process memory, for
// servers run without a database and for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/arena/internal/storage"
)

// AccountStore is an in-memory storage.AccountStore.
type AccountStore struct {
	mu     sync.RWMutex
	nextID int64
	byName map[string]storage.Account
}

var _ storage.AccountStore = (*AccountStore)(nil)

// NewAccountStore returns an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{byName: make(map[string]storage.Account)}
}

// Create implements storage.AccountStore.
func (s *AccountStore) Create(_ context.Context, username, password string) (storage.Account, error) {
	hash, err := storage.HashPassword(password)
	if err != nil {
		return storage.Account{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[username]; ok {
		return storage.Account{}, storage.ErrAccountExists
	}
	s.nextID++
	acct := storage.Account{ID: s.nextID, Username: username, PasswordHash: hash, CreatedAt: time.Now()}
	s.byName[username] = acct
	return acct, nil
}

// Authenticate implements storage.AccountStore.
func (s *AccountStore) Authenticate(ctx context.Context, username, password string) (storage.Account, error) {
	acct, err := s.GetByUsername(ctx, username)
	if err != nil {
		return storage.Account{}, err
	}
	if !storage.CheckPassword(password, acct.PasswordHash) {
		return storage.Account{}, storage.ErrInvalidCredentials
	}
	return acct, nil
}

// GetByUsername implements storage.AccountStore.
func (s *AccountStore) GetByUsername(_ context.Context, username string) (storage.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.byName[username]
	if !ok {
		return storage.Account{}, storage.ErrAccountNotFound
	}
	return acct, nil
}

// ReportStore is an in-memory storage.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports []storage.Report
}

var _ storage.ReportStore = (*ReportStore)(nil)

// NewReportStore returns an empty ReportStore.
func NewReportStore() *ReportStore {
	return &ReportStore{}
}

// Save implements storage.ReportStore.
func (s *ReportStore) Save(_ context.Context, r storage.Report) (storage.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = int64(len(s.reports) + 1)
	r.CreatedAt = time.Now()
	s.reports = append(s.reports, r)
	return r, nil
}

// ListByOwner implements storage.ReportStore.
func (s *ReportStore) ListByOwner(_ context.Context, owner string, limit int) ([]storage.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.Report
	for i := len(s.reports) - 1; i >= 0 && len(out) < limit; i-- {
		if s.reports[i].Owner == owner {
			out = append(out, s.reports[i])
		}
	}
	return out, nil
}

// Leaderboard implements storage.ReportStore.
func (s *ReportStore) Leaderboard(_ context.Context, limit int) ([]storage.Standing, error) {
	s.mu.RLock()
	byOwner := make(map[string]*storage.Standing)
	for _, r := range s.reports {
		st, ok := byOwner[r.Owner]
		if !ok {
			st = &storage.Standing{Owner: r.Owner}
			byOwner[r.Owner] = st
		}
		if r.Victory {
			st.Victories++
		} else {
			st.Defeats++
		}
		st.EnemiesDefeated += r.EnemiesDefeated
	}
	s.mu.RUnlock()

	out := make([]storage.Standing, 0, len(byOwner))
	for _, st := range byOwner {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Victories != b.Victories {
			return a.Victories > b.Victories
		}
		if a.EnemiesDefeated != b.EnemiesDefeated {
			return a.EnemiesDefeated > b.EnemiesDefeated
		}
		return a.Owner < b.Owner
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
