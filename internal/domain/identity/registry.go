package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/amma-health/portal/internal/platform/auth"
	"github.com/amma-health/portal/internal/platform/snapshot"
)

const (
	snapshotName    = "users"
	snapshotVersion = 5
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnknownRole        = errors.New("unknown role")
	ErrNotFound           = errors.New("user not found")
)

type registryState struct {
	Users []User `json:"users"`
}

// Registry owns all platform accounts. Mutations persist through the
// snapshot store; reads come from the in-memory set.
type Registry struct {
	mu     sync.RWMutex
	users  []User
	store  snapshot.Store
	issuer *auth.Issuer
	logger zerolog.Logger
	now    func() time.Time
	rng    *rand.Rand
}

// NewRegistry loads persisted accounts; a missing or stale snapshot
// starts empty.
func NewRegistry(ctx context.Context, store snapshot.Store, issuer *auth.Issuer, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		store:  store,
		issuer: issuer,
		logger: logger.With().Str("component", "identity_registry").Logger(),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	var state registryState
	err := snapshot.LoadState(ctx, store, snapshotName, snapshotVersion, &state)
	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		// fresh state
	case err != nil:
		return nil, err
	default:
		r.users = state.Users
	}
	return r, nil
}

// RegisterInput carries everything needed to open an account.
type RegisterInput struct {
	Email     string
	Password  string
	Name      string
	Role      Role
	Specialty string
	Phone     string
}

// Register creates an account and returns it with a session token.
// Doctor accounts are assigned a unique 4-digit code on creation.
func (r *Registry) Register(ctx context.Context, in RegisterInput) (User, string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return User{}, "", errors.New("email, password and name are required")
	}
	if !validRoles[in.Role] {
		return User{}, "", fmt.Errorf("%w: %q", ErrUnknownRole, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findByEmail(in.Email) >= 0 {
		return User{}, "", ErrEmailTaken
	}

	u := User{
		ID:           uuid.New().String(),
		Email:        in.Email,
		Name:         in.Name,
		Role:         in.Role,
		Specialty:    in.Specialty,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		CreatedAt:    r.now(),
	}
	if in.Role == RoleDoctor {
		u.DoctorCode = r.nextDoctorCode()
	}
	r.users = append(r.users, u)
	r.persist(ctx)

	token, err := r.issuer.Issue(u.ID, string(u.Role))
	if err != nil {
		return User{}, "", fmt.Errorf("issue token: %w", err)
	}
	r.logger.Info().Str("user_id", u.ID).Str("role", string(u.Role)).Msg("account registered")
	return u.Public(), token, nil
}

// Login verifies the password and returns the account with a fresh
// session token. Unknown emails and wrong passwords are reported the
// same way so callers cannot probe for accounts.
func (r *Registry) Login(ctx context.Context, email, password string) (User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	r.mu.RLock()
	i := r.findByEmail(email)
	var u User
	if i >= 0 {
		u = r.users[i]
	}
	r.mu.RUnlock()

	if i < 0 {
		return User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		r.logger.Warn().Str("user_id", u.ID).Msg("login rejected: bad password")
		return User{}, "", ErrInvalidCredentials
	}

	token, err := r.issuer.Issue(u.ID, string(u.Role))
	if err != nil {
		return User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return u.Public(), token, nil
}

// Get returns the account with the given id.
func (r *Registry) Get(id string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return u.Public(), true
		}
	}
	return User{}, false
}

// Doctors lists every doctor account. The list feeds the AI matcher's
// candidate set and the public doctor directory.
func (r *Registry) Doctors() []User {
	return r.filter(func(u User) bool { return u.Role == RoleDoctor })
}

// DoctorByCode resolves a doctor from their 4-digit code.
func (r *Registry) DoctorByCode(code string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Role == RoleDoctor && u.DoctorCode == code {
			return u.Public(), true
		}
	}
	return User{}, false
}

// All returns every account with credentials stripped.
func (r *Registry) All() []User {
	return r.filter(func(User) bool { return true })
}

// Reset drops all accounts. Used by the seeder.
func (r *Registry) Reset(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = nil
	r.persist(ctx)
}

func (r *Registry) filter(keep func(User) bool) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []User
	for _, u := range r.users {
		if keep(u) {
			out = append(out, u.Public())
		}
	}
	return out
}

// findByEmail assumes the caller holds at least a read lock.
func (r *Registry) findByEmail(email string) int {
	for i, u := range r.users {
		if u.Email == email {
			return i
		}
	}
	return -1
}

// nextDoctorCode picks an unused 4-digit code. Caller holds the write
// lock. With at most a few thousand doctors collisions are rare, so a
// retry loop is enough.
func (r *Registry) nextDoctorCode() string {
	for {
		code := fmt.Sprintf("%04d", r.rng.Intn(10000))
		taken := false
		for _, u := range r.users {
			if u.DoctorCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}

func (r *Registry) persist(ctx context.Context) {
	state := registryState{Users: r.users}
	if err := snapshot.SaveState(ctx, r.store, snapshotName, snapshotVersion, state); err != nil {
		r.logger.Error().Err(err).Msg("failed to persist user state")
	}
}
