package state

import (
	"bytes"
	"context"
	"errors"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/rcliao/nexuslearn/internal/identity"
	"github.com/rcliao/nexuslearn/internal/store"
)

func setup(t *testing.T) (*identity.Store, store.KV) {
	t.Helper()
	kv, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return identity.New(kv).WithCost(bcrypt.MinCost), kv
}

func TestNoSessionYieldsDefaultAndNeverWrites(t *testing.T) {
	ctx := context.Background()
	ids, kv := setup(t)

	c := New(kv, ids, "subjects", []string{"default"}, nil)
	defer c.Close()

	if got := c.Get(); len(got) != 1 || got[0] != "default" {
		t.Fatalf("expected default, got %v", got)
	}
	c.Set([]string{"x"})
	if got := c.Get(); got[0] != "default" {
		t.Errorf("Set without a session must be a no-op, got %v", got)
	}
	if c.Key() != "" {
		t.Errorf("expected empty key, got %q", c.Key())
	}

	keys, _ := kv.Keys(ctx, "subjects")
	if len(keys) != 0 {
		t.Errorf("expected no storage writes, got %v", keys)
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	ctx := context.Background()
	ids, kv := setup(t)

	c := New(kv, ids, "subjects", []string{}, nil)
	defer c.Close()

	ids.Signup(ctx, "a@x.com", "p")
	c.Set([]string{"a-only"})
	if c.Key() != "subjects_a@x.com" {
		t.Errorf("unexpected key %q", c.Key())
	}

	ids.Signup(ctx, "b@x.com", "p")
	if got := c.Get(); len(got) != 0 {
		t.Fatalf("B must not see A's value, got %v", got)
	}
	c.Update(func(prev []string) []string { return append(append([]string{}, prev...), "b-only") })

	ids.Login(ctx, "a@x.com", "p")
	if got := c.Get(); len(got) != 1 || got[0] != "a-only" {
		t.Errorf("A's value changed: %v", got)
	}

	raw, _, _ := kv.Get(ctx, "subjects_b@x.com")
	if raw != `["b-only"]` {
		t.Errorf("unexpected B record %s", raw)
	}
}

func TestSwitchRoundTripRestoresValues(t *testing.T) {
	ctx := context.Background()
	ids, kv := setup(t)

	views := New(kv, ids, "activeView", "dashboard", nil)
	events := New(kv, ids, "calendarEvents", []int{}, nil)
	defer views.Close()
	defer events.Close()

	ids.Signup(ctx, "a@x.com", "p")
	views.Set("calendar")
	events.Set([]int{1, 2})

	ids.Signup(ctx, "b@x.com", "p")
	if views.Get() != "dashboard" || len(events.Get()) != 0 {
		t.Fatalf("expected defaults for B, got %q %v", views.Get(), events.Get())
	}
	views.Set("budget")

	ids.Logout(ctx)
	if views.Get() != "dashboard" {
		t.Errorf("expected default after logout, got %q", views.Get())
	}

	ids.Login(ctx, "a@x.com", "p")
	if views.Get() != "calendar" {
		t.Errorf("expected A's view, got %q", views.Get())
	}
	if got := events.Get(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("expected A's events, got %v", got)
	}
}

func TestCorruptRecordFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	ids, kv := setup(t)
	ids.Signup(ctx, "a@x.com", "p")
	kv.Set(ctx, "reminders_a@x.com", "{broken")

	var buf bytes.Buffer
	c := New(kv, ids, "reminders", []string{}, log.New(&buf, "", 0))
	defer c.Close()

	if got := c.Get(); got == nil || len(got) != 0 {
		t.Errorf("expected empty default, got %v", got)
	}
	if !errors.Is(c.Err(), ErrStorageRead) {
		t.Errorf("expected ErrStorageRead recorded, got %v", c.Err())
	}
	if !strings.Contains(buf.String(), "reminders_a@x.com") {
		t.Errorf("expected logged warning naming the key, got %q", buf.String())
	}
}

func TestUpdateAsRejectsOtherOwner(t *testing.T) {
	ctx := context.Background()
	ids, kv := setup(t)

	c := New(kv, ids, "studyBuddyChatHistory", []string{}, nil)
	defer c.Close()

	ids.Signup(ctx, "a@x.com", "p")
	owner := c.Owner()
	ids.Signup(ctx, "b@x.com", "p")

	if c.UpdateAs(owner, func(prev []string) []string { return append(prev, "late") }) {
		t.Fatal("expected update for stale owner to be rejected")
	}
	if len(c.Get()) != 0 {
		t.Errorf("B's transcript must be untouched, got %v", c.Get())
	}
	if _, ok, _ := kv.Get(ctx, "studyBuddyChatHistory_a@x.com"); ok {
		t.Error("stale update must not persist")
	}
	if !c.UpdateAs("b@x.com", func(prev []string) []string { return append(prev, "ok") }) {
		t.Error("expected update for current owner to apply")
	}
}

func TestScopedKey(t *testing.T) {
	if got := ScopedKey("subjects", "a@x.com"); got != "subjects_a@x.com" {
		t.Errorf("unexpected key %q", got)
	}
	if ScopedKey("subjects", "a@x.com") == ScopedKey("subjects", "b@x.com") {
		t.Error("keys for distinct accounts must differ")
	}
}
