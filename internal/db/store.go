package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSession is returned by LoadSession when nobody is logged in.
var ErrNoSession = errors.New("no session")

const (
	keyToken          = "token"
	keyFirstName      = "first_name"
	keyLastName       = "last_name"
	keyEmail          = "email"
	keyDeviceID       = "device_id"
	keyPushRegistered = "push_registered"
)

var sessionKeys = []string{keyToken, keyFirstName, keyLastName, keyEmail, keyPushRegistered}

type Store struct {
	DB *sql.DB
}

// Session is the logged-in user as remembered between runs.
type Session struct {
	Token          string
	FirstName      string
	LastName       string
	Email          string
	DeviceID       string
	PushRegistered bool
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// DisplayName is "First Last", falling back to the email.
func (s Session) DisplayName() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if name == "" {
		return s.Email
	}
	return name
}

// ExpiresAt reads the exp claim of the access token. The signature is not
// checked here; the backend does that on every request.
func (s Session) ExpiresAt() (time.Time, bool) {
	if s.Token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether the token carries an exp claim at or before now.
func (s Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && !exp.After(now)
}

func (s *Store) LoadSession(ctx context.Context) (Session, error) {
	values, err := s.settings(ctx)
	if err != nil {
		return Session{}, err
	}

	session := Session{
		Token:          values[keyToken],
		FirstName:      values[keyFirstName],
		LastName:       values[keyLastName],
		Email:          values[keyEmail],
		DeviceID:       values[keyDeviceID],
		PushRegistered: values[keyPushRegistered] == "1",
	}
	if session.Token == "" {
		return session, ErrNoSession
	}
	return session, nil
}

func (s *Store) SaveSession(ctx context.Context, session Session) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	values := map[string]string{
		keyToken:          session.Token,
		keyFirstName:      session.FirstName,
		keyLastName:       session.LastName,
		keyEmail:          session.Email,
		keyPushRegistered: formatBool(session.PushRegistered),
	}
	if session.DeviceID != "" {
		values[keyDeviceID] = session.DeviceID
	}
	for key, value := range values {
		if err := setSetting(ctx, tx, key, value); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ClearSession forgets the logged-in user. The device id survives so the
// backend keeps seeing the same installation.
func (s *Store) ClearSession(ctx context.Context) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(sessionKeys)), ",")
	args := make([]any, 0, len(sessionKeys))
	for _, key := range sessionKeys {
		args = append(args, key)
	}
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM settings WHERE key IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM ticket_images"); err != nil {
		return fmt.Errorf("clear image cache: %w", err)
	}
	return nil
}

// DeviceID returns the installation id, creating it on first use.
func (s *Store) DeviceID(ctx context.Context) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", keyDeviceID).Scan(&id)
	if err == nil && id != "" {
		return id, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("read device id: %w", err)
	}

	id = uuid.NewString()
	if err := setSetting(ctx, s.DB, keyDeviceID, id); err != nil {
		return "", fmt.Errorf("store device id: %w", err)
	}
	return id, nil
}

func (s *Store) MarkPushRegistered(ctx context.Context) error {
	if err := setSetting(ctx, s.DB, keyPushRegistered, formatBool(true)); err != nil {
		return fmt.Errorf("mark push registered: %w", err)
	}
	return nil
}

// CachedImage returns a previously fetched ticket photo.
func (s *Store) CachedImage(ctx context.Context, ticketID int64) ([]byte, bool, error) {
	var data []byte
	err := s.DB.QueryRowContext(ctx, "SELECT data FROM ticket_images WHERE ticket_id = ?", ticketID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached image %d: %w", ticketID, err)
	}
	return data, true, nil
}

func (s *Store) CacheImage(ctx context.Context, ticketID int64, data []byte) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO ticket_images (ticket_id, data, fetched_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(ticket_id) DO UPDATE SET data = excluded.data, fetched_at = excluded.fetched_at`, ticketID, data)
	if err != nil {
		return fmt.Errorf("cache image %d: %w", ticketID, err)
	}
	return nil
}

func (s *Store) DropImage(ctx context.Context, ticketID int64) error {
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM ticket_images WHERE ticket_id = ?", ticketID); err != nil {
		return fmt.Errorf("drop image %d: %w", ticketID, err)
	}
	return nil
}

// PruneImages drops cached photos of tickets not in keep.
func (s *Store) PruneImages(ctx context.Context, keep []int64) error {
	if len(keep) == 0 {
		if _, err := s.DB.ExecContext(ctx, "DELETE FROM ticket_images"); err != nil {
			return fmt.Errorf("prune images: %w", err)
		}
		return nil
	}

	parts := make([]string, 0, len(keep))
	for _, id := range keep {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	if _, err := s.DB.ExecContext(ctx, "DELETE FROM ticket_images WHERE ticket_id NOT IN ("+strings.Join(parts, ",")+")"); err != nil {
		return fmt.Errorf("prune images: %w", err)
	}
	return nil
}

func (s *Store) settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("read settings: %w", err)
		}
		values[key] = value
	}
	return values, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setSetting(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	return err
}

func formatBool(value bool) string {
	if value {
		return "1"
	}
	return "0"
}
