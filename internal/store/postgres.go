package store

import (
	"context"
	"database/sql"
	"time"

	"workfit-event-service-golang/internal/events"

	"github.com/aarondl/null/v8"
	"github.com/friendsofgo/errors"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// UserStore owns the relational side of the user service: synced users,
// companies, and notification preferences.
type UserStore struct {
	DB *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{DB: db}
}

// UpdatePasswordHash overwrites the stored credential hash for userID.
// Overwrite-with-latest is idempotent: the payload always carries the newest
// hash, so replaying the event leaves the row unchanged.
func (s *UserStore) UpdatePasswordHash(ctx context.Context, userID, hash string, changedAt time.Time) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=$1, password_changed_at=$2 WHERE user_id=$3`,
		hash, changedAt, userID)
	if err != nil {
		return false, errors.Wrap(err, "update password hash")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return affected > 0, nil
}

// ExistsByEmail reports whether a user row already carries this natural key.
func (s *UserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email=$1)`, email).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "exists by email")
	}
	return exists, nil
}

// CreateFromRegistration inserts a user synced from a registration event.
func (s *UserStore) CreateFromRegistration(ctx context.Context, data events.UserData) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO users (user_id, username, full_name, email, phone_number, password_hash, role, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		data.UserID,
		data.Username,
		null.NewString(data.FullName, data.FullName != ""),
		data.Email,
		null.NewString(data.PhoneNumber, data.PhoneNumber != ""),
		data.PasswordHash,
		data.Role,
		data.Status,
		time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "insert user %s", data.Email)
	}
	return nil
}

// UpdateStatus sets the status for the user with this email.
func (s *UserStore) UpdateStatus(ctx context.Context, email, status string) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET status=$1 WHERE email=$2`, status, email)
	if err != nil {
		return false, errors.Wrapf(err, "update status for %s", email)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}
	return affected > 0, nil
}

// UpsertCompany creates or refreshes a company row keyed by company_id.
// Replays converge on the same row, so the write is idempotent.
func (s *UserStore) UpsertCompany(ctx context.Context, data events.CompanyData) error {
	_, err := s.DB.ExecContext(ctx, `
        INSERT INTO companies (company_id, name, logo_url, website_url, description, address, size, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (company_id) DO UPDATE SET
            name = EXCLUDED.name,
            logo_url = EXCLUDED.logo_url,
            website_url = EXCLUDED.website_url,
            description = EXCLUDED.description,
            address = EXCLUDED.address,
            size = EXCLUDED.size,
            updated_at = EXCLUDED.updated_at`,
		data.CompanyID,
		data.Name,
		null.NewString(data.LogoURL, data.LogoURL != ""),
		null.NewString(data.WebsiteURL, data.WebsiteURL != ""),
		null.NewString(data.Description, data.Description != ""),
		null.NewString(data.Address, data.Address != ""),
		null.NewString(data.Size, data.Size != ""),
		time.Now().UTC())
	if err != nil {
		return errors.Wrapf(err, "upsert company %s", data.CompanyID)
	}
	return nil
}

// CountUsers returns the total number of synced user rows.
func (s *UserStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "count users")
	}
	return count, nil
}

// NotificationSettings mirrors the per-user channel preferences consulted by
// the default notification strategy.
type NotificationSettings struct {
	EmailEnabled bool
	PushEnabled  bool
}

// SettingsByEmail loads a user's notification preferences. Missing rows fall
// back to both channels enabled.
func (s *UserStore) SettingsByEmail(ctx context.Context, email string) (NotificationSettings, error) {
	settings := NotificationSettings{EmailEnabled: true, PushEnabled: true}
	err := s.DB.QueryRowContext(ctx, `
        SELECT COALESCE(email_notifications, TRUE), COALESCE(push_notifications, TRUE)
        FROM notification_settings ns
        JOIN users u ON u.user_id = ns.user_id
        WHERE u.email = $1`, email).
		Scan(&settings.EmailEnabled, &settings.PushEnabled)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return settings, errors.Wrapf(err, "settings for %s", email)
	}
	return settings, nil
}
