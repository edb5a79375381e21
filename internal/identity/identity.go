// Package identity manages registered accounts and the single active session.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rcliao/nexuslearn/internal/model"
	"github.com/rcliao/nexuslearn/internal/store"
)

// Storage keys. Both are global, not namespaced by account.
const (
	UsersKey   = "nexuslearn_users"
	SessionKey = "nexuslearn_session"
)

var (
	ErrDuplicateAccount   = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("no user is logged in")
	ErrAccountNotFound    = errors.New("current user not found in user list")
	ErrInvalidInput       = errors.New("invalid input")
)

// ProfileUpdate holds the mutable profile fields. Nil fields are left as is.
type ProfileUpdate struct {
	Name *string
}

// Store is the local credential store. It keeps the active session in
// memory and mirrors it to the KV.
type Store struct {
	kv   store.KV
	cost int

	mu      sync.Mutex
	current *model.Session
	subs    map[int]func(*model.Session)
	nextSub int
}

// New creates a Store over kv. Call Load to rehydrate a persisted session.
func New(kv store.KV) *Store {
	return &Store{
		kv:   kv,
		cost: bcrypt.DefaultCost,
		subs: map[int]func(*model.Session){},
	}
}

// WithCost sets the bcrypt cost used for new password hashes.
func (s *Store) WithCost(cost int) *Store {
	s.cost = cost
	return s
}

// Load restores the session persisted by a previous process. A missing or
// unreadable session leaves the store logged out.
func (s *Store) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, SessionKey)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	var sess *model.Session
	if ok {
		var decoded model.Session
		if json.Unmarshal([]byte(raw), &decoded) == nil && decoded.Email != "" {
			sess = &decoded
		}
	}
	s.setCurrent(sess)
	return nil
}

// Current returns a copy of the active session, or nil.
func (s *Store) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	c := *s.current
	return &c
}

// Subscribe registers fn to be called after every session change. The
// returned func removes the registration.
func (s *Store) Subscribe(fn func(*model.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Signup registers a new account and logs it in.
func (s *Store) Signup(ctx context.Context, email, password string) (model.Session, error) {
	if err := validateCredentials(email, password); err != nil {
		return model.Session{}, err
	}

	users, err := s.accounts(ctx)
	if err != nil {
		return model.Session{}, err
	}
	for _, u := range users {
		if u.Email == email {
			return model.Session{}, ErrDuplicateAccount
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return model.Session{}, fmt.Errorf("hash password: %w", err)
	}
	acct := model.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	users = append(users, acct)
	if err := s.saveAccounts(ctx, users); err != nil {
		return model.Session{}, err
	}

	sess := acct.Session()
	if err := s.establish(ctx, &sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Login verifies the credentials and makes the account the active session.
func (s *Store) Login(ctx context.Context, email, password string) (model.Session, error) {
	users, err := s.accounts(ctx)
	if err != nil {
		return model.Session{}, err
	}
	for _, u := range users {
		if u.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return model.Session{}, ErrInvalidCredentials
		}
		sess := u.Session()
		if err := s.establish(ctx, &sess); err != nil {
			return model.Session{}, err
		}
		return sess, nil
	}
	return model.Session{}, ErrInvalidCredentials
}

// Logout clears the active session. It is safe to call when logged out.
func (s *Store) Logout(ctx context.Context) error {
	return s.establish(ctx, nil)
}

// UpdateProfile merges upd into the stored account and the active session.
func (s *Store) UpdateProfile(ctx context.Context, upd ProfileUpdate) (model.Session, error) {
	cur := s.Current()
	if cur == nil {
		return model.Session{}, ErrNotAuthenticated
	}

	users, err := s.accounts(ctx)
	if err != nil {
		return model.Session{}, err
	}
	idx := -1
	for i, u := range users {
		if u.ID == cur.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Session{}, ErrAccountNotFound
	}

	if upd.Name != nil {
		users[idx].Name = strings.TrimSpace(*upd.Name)
		cur.Name = users[idx].Name
	}
	if err := s.saveAccounts(ctx, users); err != nil {
		return model.Session{}, err
	}
	if err := s.establish(ctx, cur); err != nil {
		return model.Session{}, err
	}
	return *cur, nil
}

// Account returns the stored record for email.
func (s *Store) Account(ctx context.Context, email string) (model.Account, error) {
	users, err := s.accounts(ctx)
	if err != nil {
		return model.Account{}, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.Account{}, ErrAccountNotFound
}

func (s *Store) accounts(ctx context.Context) ([]model.Account, error) {
	raw, ok, err := s.kv.Get(ctx, UsersKey)
	if err != nil {
		return nil, fmt.Errorf("read accounts: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var users []model.Account
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		// An unreadable list behaves like an empty one.
		return nil, nil
	}
	return users, nil
}

func (s *Store) saveAccounts(ctx context.Context, users []model.Account) error {
	b, err := json.Marshal(users)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, UsersKey, string(b)); err != nil {
		return fmt.Errorf("write accounts: %w", err)
	}
	return nil
}

// establish persists sess (or its absence) and then publishes it.
func (s *Store) establish(ctx context.Context, sess *model.Session) error {
	if sess == nil {
		if err := s.kv.Remove(ctx, SessionKey); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	} else {
		b, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		if err := s.kv.Set(ctx, SessionKey, string(b)); err != nil {
			return fmt.Errorf("write session: %w", err)
		}
	}
	s.setCurrent(sess)
	return nil
}

func (s *Store) setCurrent(sess *model.Session) {
	s.mu.Lock()
	if sess != nil {
		c := *sess
		sess = &c
	}
	s.current = sess
	subs := make([]func(*model.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		var arg *model.Session
		if sess != nil {
			c := *sess
			arg = &c
		}
		fn(arg)
	}
}

func validateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	return nil
}
