package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/courtmatch/courtgate/internal"
)

func newTestStore(t *testing.T, lifetime, refreshThreshold time.Duration) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(rdb, "cgs", lifetime, refreshThreshold)

	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestCreateAndValidate(t *testing.T) {
	store, _, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	sess, err := store.Create(context.Background(), "u1", fp, map[string]string{"locale": "en"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if sess.SessionID == "" {
		t.Fatal("expected non-empty session id")
	}

	got, err := store.Validate(context.Background(), sess.SessionID, fp)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("user id = %q, want u1", got.UserID)
	}
	if got.Data["locale"] != "en" {
		t.Errorf("data = %v, want locale=en", got.Data)
	}
}

func TestValidateUnknownSession(t *testing.T) {
	store, _, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")

	// Well-formed id that was never created.
	sid, err := internal.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}
	if _, err := store.Validate(context.Background(), sid.String(), fp); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id = %v, want ErrNotFound", err)
	}

	// Garbage id short-circuits before touching Redis.
	if _, err := store.Validate(context.Background(), "not-a-session-id", fp); !errors.Is(err, ErrNotFound) {
		t.Errorf("malformed id = %v, want ErrNotFound", err)
	}
}

func TestFingerprintMismatchDestroysSession(t *testing.T) {
	store, mr, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	sess, err := store.Create(context.Background(), "u1", fp, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	other := internal.Fingerprint("agent/1.0", "192.168.1.50")
	if _, err := store.Validate(context.Background(), sess.SessionID, other); !errors.Is(err, ErrFingerprintMismatch) {
		t.Fatalf("mismatched fingerprint = %v, want ErrFingerprintMismatch", err)
	}

	if mr.Exists("cgs:" + sess.SessionID) {
		t.Error("session record survived a fingerprint mismatch")
	}

	// Even the original fingerprint cannot resurrect it.
	if _, err := store.Validate(context.Background(), sess.SessionID, fp); !errors.Is(err, ErrNotFound) {
		t.Errorf("post-mismatch validate = %v, want ErrNotFound", err)
	}
}

// seedRecord plants a session record with an explicit expiry, bypassing
// Create, so stale and near-expiry states can be tested without waiting.
func seedRecord(t *testing.T, mr *miniredis.Miniredis, userID string, fp [32]byte, expiresAt int64) string {
	t.Helper()

	sid, err := internal.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	blob, err := json.Marshal(&Session{
		UserID:          userID,
		FingerprintHash: hex.EncodeToString(fp[:]),
		CreatedAt:       time.Now().Add(-time.Hour).Unix(),
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := mr.Set("cgs:"+sid.String(), string(blob)); err != nil {
		t.Fatalf("seeding record failed: %v", err)
	}
	return sid.String()
}

func TestExpiredSessionIsDestroyed(t *testing.T) {
	store, mr, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	sid := seedRecord(t, mr, "u1", fp, time.Now().Add(-time.Minute).Unix())

	if _, err := store.Validate(context.Background(), sid, fp); !errors.Is(err, ErrExpired) {
		t.Fatalf("stale session = %v, want ErrExpired", err)
	}
	if mr.Exists("cgs:" + sid) {
		t.Error("stale session record was not destroyed")
	}
}

func TestSlidingExtension(t *testing.T) {
	store, mr, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	// One minute remaining, under the 5m threshold: validate must push
	// the expiry out to a full lifetime again.
	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	nearExpiry := time.Now().Add(time.Minute).Unix()
	sid := seedRecord(t, mr, "u1", fp, nearExpiry)

	got, err := store.Validate(context.Background(), sid, fp)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.ExpiresAt <= nearExpiry {
		t.Errorf("expiry did not slide forward: %d -> %d", nearExpiry, got.ExpiresAt)
	}

	// Re-read from Redis: the stored record moved too.
	again, err := store.Validate(context.Background(), sid, fp)
	if err != nil {
		t.Fatalf("second Validate failed: %v", err)
	}
	if again.ExpiresAt < got.ExpiresAt {
		t.Errorf("stored expiry regressed: %d -> %d", got.ExpiresAt, again.ExpiresAt)
	}
}

func TestExtensionNeverMovesExpiryBackwards(t *testing.T) {
	store, mr, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	// Record already expires further out than one lifetime from now; a
	// direct extend attempt must leave it alone.
	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	farExpiry := time.Now().Add(3 * time.Hour).Unix()
	sid := seedRecord(t, mr, "u1", fp, farExpiry)

	now := time.Now()
	if err := store.extend(context.Background(), sid, now.Add(time.Hour).Unix(), now.Unix()); err != nil {
		t.Fatalf("extend failed: %v", err)
	}

	got, err := store.Validate(context.Background(), sid, fp)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.ExpiresAt != farExpiry {
		t.Errorf("expiry moved backwards: %d -> %d", farExpiry, got.ExpiresAt)
	}
}

func TestValidateOutsideThresholdDoesNotExtend(t *testing.T) {
	store, _, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	sess, err := store.Create(context.Background(), "u1", fp, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Validate(context.Background(), sess.SessionID, fp)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got.ExpiresAt != sess.ExpiresAt {
		t.Errorf("expiry moved on a fresh session: %d -> %d", sess.ExpiresAt, got.ExpiresAt)
	}
}

func TestDestroyIsIdempotent(t *testing.T) {
	store, _, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	sess, err := store.Create(context.Background(), "u1", fp, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Destroy(context.Background(), sess.SessionID); err != nil {
		t.Fatalf("first Destroy failed: %v", err)
	}
	if err := store.Destroy(context.Background(), sess.SessionID); err != nil {
		t.Fatalf("second Destroy failed: %v", err)
	}

	if _, err := store.Validate(context.Background(), sess.SessionID, fp); !errors.Is(err, ErrNotFound) {
		t.Errorf("post-destroy validate = %v, want ErrNotFound", err)
	}
}

func TestCorruptRecordReadsAsNotFound(t *testing.T) {
	store, mr, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	sess, err := store.Create(context.Background(), "u1", fp, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := mr.Set("cgs:"+sess.SessionID, "{not json"); err != nil {
		t.Fatalf("corrupting record failed: %v", err)
	}

	if _, err := store.Validate(context.Background(), sess.SessionID, fp); !errors.Is(err, ErrNotFound) {
		t.Errorf("corrupt record = %v, want ErrNotFound", err)
	}
	if mr.Exists("cgs:" + sess.SessionID) {
		t.Error("corrupt record was not destroyed")
	}
}

func TestRedisDownSurfacesUnavailable(t *testing.T) {
	store, mr, done := newTestStore(t, time.Hour, 5*time.Minute)
	defer done()

	fp := internal.Fingerprint("agent/1.0", "10.0.0.1")
	sid, err := internal.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	mr.Close()

	if _, err := store.Create(context.Background(), "u1", fp, nil); !errors.Is(err, ErrRedisUnavailable) {
		t.Errorf("Create on dead redis = %v, want ErrRedisUnavailable", err)
	}
	if _, err := store.Validate(context.Background(), sid.String(), fp); !errors.Is(err, ErrRedisUnavailable) {
		t.Errorf("Validate on dead redis = %v, want ErrRedisUnavailable", err)
	}
}
