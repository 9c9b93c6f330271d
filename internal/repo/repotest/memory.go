// Package repotest provides an in-memory UserRepository with the same
// conditional-update semantics as the postgres implementation, for use in
// service, middleware and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/trailhead-tours/trailhead/internal/domain"
	"github.com/trailhead-tours/trailhead/internal/repo/postgres"
)

var _ postgres.UserRepository = (*MemoryUserRepository)(nil)

type MemoryUserRepository struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		nextID: 1,
		users:  make(map[int64]*domain.User),
	}
}

// Get returns a copy of the stored user for assertions, bypassing the
// active-only filter.
func (m *MemoryUserRepository) Get(id int64) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// Put stores a user directly, for test setup.
func (m *MemoryUserRepository) Put(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextID
		m.nextID++
	} else if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
	cp := *u
	m.users[u.ID] = &cp
}

func (m *MemoryUserRepository) Create(_ context.Context, name, email, role, passwordHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return nil, domain.ErrDuplicateEmail
		}
	}

	now := time.Now()
	u := &domain.User{
		ID:           m.nextID,
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.nextID++
	m.users[u.ID] = u
	cp := *u
	return &cp, nil
}

func (m *MemoryUserRepository) FindActiveByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email && u.Active {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryUserRepository) FindActiveByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUserRepository) UpdatePassword(_ context.Context, id int64, passwordHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, nil
	}
	now := time.Now()
	u.PasswordHash = passwordHash
	u.PasswordChangedAt = &now
	u.UpdatedAt = now
	cp := *u
	return &cp, nil
}

func (m *MemoryUserRepository) SetResetToken(_ context.Context, id int64, digest string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !u.Active {
		return pgx.ErrNoRows
	}
	u.ResetTokenHash = &digest
	u.ResetTokenExpiresAt = &expiresAt
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryUserRepository) ClearResetToken(_ context.Context, id int64, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || u.ResetTokenHash == nil || *u.ResetTokenHash != digest {
		return nil
	}
	u.ResetTokenHash = nil
	u.ResetTokenExpiresAt = nil
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryUserRepository) ConsumeResetToken(_ context.Context, digest, passwordHash string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, u := range m.users {
		if !u.Active || u.ResetTokenHash == nil || *u.ResetTokenHash != digest {
			continue
		}
		if u.ResetTokenExpiresAt == nil || !u.ResetTokenExpiresAt.After(now) {
			continue
		}
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &now
		u.ResetTokenHash = nil
		u.ResetTokenExpiresAt = nil
		u.UpdatedAt = now
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryUserRepository) UpdateProfile(_ context.Context, id int64, name, email *string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !u.Active {
		return nil, nil
	}
	if email != nil {
		normalized := strings.ToLower(*email)
		for _, other := range m.users {
			if other.ID != id && other.Email == normalized {
				return nil, domain.ErrDuplicateEmail
			}
		}
		u.Email = normalized
	}
	if name != nil {
		u.Name = *name
	}
	u.UpdatedAt = time.Now()
	cp := *u
	return &cp, nil
}

func (m *MemoryUserRepository) Deactivate(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !u.Active {
		return pgx.ErrNoRows
	}
	u.Active = false
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryUserRepository) List(_ context.Context, limit, offset int) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var users []domain.User
	for _, u := range m.users {
		if u.Active {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID > users[j].ID
	})

	if offset >= len(users) {
		return nil, nil
	}
	users = users[offset:]
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *MemoryUserRepository) UpdateRole(_ context.Context, id int64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !u.Active {
		return pgx.ErrNoRows
	}
	u.Role = role
	u.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryUserRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.users, id)
	return nil
}
