package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/accounts/internal/adapters/token/jwt"
	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
	err    error
	// revokeErr fails RevokeSessions.
	revokeErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*domain.User{}}
}

func (r *fakeUserRepo) add(u domain.User) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = r.nextID
	r.users[u.ID] = &u
	cp := u
	return &cp
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := []*domain.User{}
	for i := offset; i < len(ids) && i < offset+limit; i++ {
		cp := *r.users[ids[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeUserRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	r.nextID++
	user.ID = r.nextID
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	for _, u := range r.users {
		if u.ID != user.ID && u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	stored := r.users[user.ID]
	cp := *user
	cp.IsAdmin = stored.IsAdmin
	cp.SessionVersion = stored.SessionVersion
	if cp.PasswordHash != stored.PasswordHash {
		cp.SessionVersion++
	}
	r.users[user.ID] = &cp
	user.IsAdmin = cp.IsAdmin
	user.SessionVersion = cp.SessionVersion
	return nil
}

func (r *fakeUserRepo) SetAdmin(_ context.Context, id int64, isAdmin bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.IsAdmin = isAdmin
	u.SessionVersion++
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) RevokeSessions(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revokeErr != nil {
		return r.revokeErr
	}
	u, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.SessionVersion++
	return nil
}

func (r *fakeUserRepo) sessionVersion(id int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].SessionVersion
}

type fakeRevocationRepo struct {
	mu      sync.Mutex
	records map[string]domain.RevokedToken
	err     error
}

func newFakeRevocationRepo() *fakeRevocationRepo {
	return &fakeRevocationRepo{records: map[string]domain.RevokedToken{}}
}

func (r *fakeRevocationRepo) Revoke(_ context.Context, token *domain.RevokedToken) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if _, ok := r.records[token.TokenID]; ok {
		return false, nil
	}
	r.records[token.TokenID] = *token
	return true, nil
}

func (r *fakeRevocationRepo) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	_, ok := r.records[tokenID]
	return ok, nil
}

func (r *fakeRevocationRepo) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var n int64
	for id, rec := range r.records {
		if !rec.ExpiresAt.After(now) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeRevocationRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// fakeHasher stores "hashed:<password>". Hashes without the prefix are malformed.
type fakeHasher struct {
	mu          sync.Mutex
	verifyCalls int
}

const fakeHashPrefix = "hashed:"

func (h *fakeHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", domain.ErrHashing
	}
	return fakeHashPrefix + password, nil
}

func (h *fakeHasher) Verify(password, hash string) (bool, error) {
	h.mu.Lock()
	h.verifyCalls++
	h.mu.Unlock()
	if !strings.HasPrefix(hash, fakeHashPrefix) {
		return false, domain.ErrVerification
	}
	return strings.TrimPrefix(hash, fakeHashPrefix) == password, nil
}

func (h *fakeHasher) calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifyCalls
}

type fakeThrottler struct {
	mu       sync.Mutex
	max      int
	failures map[string]int
	err      error
}

func newFakeThrottler(max int) *fakeThrottler {
	return &fakeThrottler{max: max, failures: map[string]int{}}
}

func (t *fakeThrottler) Check(_ context.Context, email, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	if t.failures[email] >= t.max {
		return domain.ErrRateLimited
	}
	return nil
}

func (t *fakeThrottler) RegisterFailure(_ context.Context, email, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	t.failures[email]++
	return nil
}

func (t *fakeThrottler) Reset(_ context.Context, email, _ string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return t.err
	}
	delete(t.failures, email)
	return nil
}

func newTestCodec(t *testing.T, clock *fakeClock) ports.TokenCodec {
	t.Helper()
	codec, err := jwt.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "accounts-test", jwt.WithClock(clock.Now))
	require.NoError(t, err)
	return codec
}

var errStoreDown = errors.New("store down")
