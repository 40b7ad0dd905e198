package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSessionRoundTripAndClear(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.LoadSession(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession on empty store, got %v", err)
	}

	deviceID, err := store.DeviceID(ctx)
	if err != nil {
		t.Fatalf("device id: %v", err)
	}

	if err := store.SaveSession(ctx, Session{Token: "tok", FirstName: "Anna", LastName: "Nowak", Email: "anna@example.com"}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if loaded.Token != "tok" || loaded.DisplayName() != "Anna Nowak" {
		t.Fatalf("unexpected session %+v", loaded)
	}
	if loaded.DeviceID != deviceID {
		t.Fatalf("expected device id %q, got %q", deviceID, loaded.DeviceID)
	}
	if loaded.PushRegistered {
		t.Fatalf("expected push not registered yet")
	}

	if err := store.MarkPushRegistered(ctx); err != nil {
		t.Fatalf("mark push registered: %v", err)
	}
	loaded, err = store.LoadSession(ctx)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if !loaded.PushRegistered {
		t.Fatalf("expected push registered")
	}

	if err := store.ClearSession(ctx); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	cleared, err := store.LoadSession(ctx)
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
	if cleared.DeviceID != deviceID {
		t.Fatalf("expected device id to survive logout")
	}
	if cleared.Email != "" || cleared.PushRegistered {
		t.Fatalf("expected user fields to be cleared, got %+v", cleared)
	}
}

func TestDeviceIDIsStable(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	first, err := store.DeviceID(context.Background())
	if err != nil {
		t.Fatalf("device id: %v", err)
	}
	second, err := store.DeviceID(context.Background())
	if err != nil {
		t.Fatalf("device id again: %v", err)
	}
	if first == "" || first != second {
		t.Fatalf("expected stable device id, got %q and %q", first, second)
	}
}

func TestSessionExpiry(t *testing.T) {
	exp := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	session := Session{Token: token}
	got, ok := session.ExpiresAt()
	if !ok || !got.Equal(exp) {
		t.Fatalf("expected expiry %v, got %v (ok=%v)", exp, got, ok)
	}
	if session.Expired(exp.Add(-time.Minute)) {
		t.Fatalf("expected session to be valid before exp")
	}
	if !session.Expired(exp) {
		t.Fatalf("expected session to be expired at exp")
	}

	opaque := Session{Token: "not-a-jwt"}
	if _, ok := opaque.ExpiresAt(); ok {
		t.Fatalf("expected no expiry for opaque token")
	}
	if opaque.Expired(exp) {
		t.Fatalf("opaque tokens never expire locally")
	}
}

func TestImageCache(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, ok, err := store.CachedImage(ctx, 1); err != nil || ok {
		t.Fatalf("expected empty cache, got ok=%v err=%v", ok, err)
	}

	for _, id := range []int64{1, 2, 3} {
		if err := store.CacheImage(ctx, id, []byte{byte(id)}); err != nil {
			t.Fatalf("cache image %d: %v", id, err)
		}
	}
	if err := store.CacheImage(ctx, 2, []byte("new")); err != nil {
		t.Fatalf("overwrite image: %v", err)
	}
	data, ok, err := store.CachedImage(ctx, 2)
	if err != nil || !ok || string(data) != "new" {
		t.Fatalf("expected overwritten image, got %q ok=%v err=%v", data, ok, err)
	}

	if err := store.DropImage(ctx, 1); err != nil {
		t.Fatalf("drop image: %v", err)
	}
	if err := store.PruneImages(ctx, []int64{2}); err != nil {
		t.Fatalf("prune images: %v", err)
	}
	for id, want := range map[int64]bool{1: false, 2: true, 3: false} {
		if _, ok, _ := store.CachedImage(ctx, id); ok != want {
			t.Fatalf("image %d: expected cached=%v", id, want)
		}
	}

	if err := store.PruneImages(ctx, nil); err != nil {
		t.Fatalf("prune all: %v", err)
	}
	if _, ok, _ := store.CachedImage(ctx, 2); ok {
		t.Fatalf("expected cache to be empty")
	}
}

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewStore(db), func() {
		_ = db.Close()
	}
}
