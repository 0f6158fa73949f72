package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
)

// ErrProfileNotFound is returned when an account has never saved a profile.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a user's saved battalion.
type Profile struct {
	AccountID int64                       `json:"-"`
	Troops    []battalion.TroopEntry      `json:"troops"`
	Enforcers []battalion.EnforcerLoadout `json:"enforcers"`
	MiscBuffs battalion.MiscBuffs         `json:"misc_buffs"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// SaveProfile inserts or replaces the account's profile.
func (d *Database) SaveProfile(accountID int64, p Profile) error {
	troops, err := marshalList(p.Troops)
	if err != nil {
		return fmt.Errorf("failed to encode troops: %w", err)
	}
	enforcers, err := marshalList(p.Enforcers)
	if err != nil {
		return fmt.Errorf("failed to encode enforcers: %w", err)
	}
	misc, err := json.Marshal(p.MiscBuffs)
	if err != nil {
		return fmt.Errorf("failed to encode misc buffs: %w", err)
	}

	_, err = d.db.Exec(d.qb.Build(`
		INSERT INTO profiles (account_id, troops, enforcers, misc_buffs, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (account_id) DO UPDATE SET
			troops = excluded.troops,
			enforcers = excluded.enforcers,
			misc_buffs = excluded.misc_buffs,
			updated_at = excluded.updated_at`),
		accountID, troops, enforcers, string(misc))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile loads the account's profile.
func (d *Database) GetProfile(accountID int64) (*Profile, error) {
	var troops, enforcers, misc string
	p := Profile{AccountID: accountID}

	err := d.db.QueryRow(
		d.qb.Build("SELECT troops, enforcers, misc_buffs, updated_at FROM profiles WHERE account_id = ?"),
		accountID,
	).Scan(&troops, &enforcers, &misc, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if err := json.Unmarshal([]byte(troops), &p.Troops); err != nil {
		return nil, fmt.Errorf("corrupt troops for account %d: %w", accountID, err)
	}
	if err := json.Unmarshal([]byte(enforcers), &p.Enforcers); err != nil {
		return nil, fmt.Errorf("corrupt enforcers for account %d: %w", accountID, err)
	}
	if err := json.Unmarshal([]byte(misc), &p.MiscBuffs); err != nil {
		return nil, fmt.Errorf("corrupt misc buffs for account %d: %w", accountID, err)
	}
	return &p, nil
}

// DeleteProfile removes the account's profile.
func (d *Database) DeleteProfile(accountID int64) error {
	result, err := d.db.Exec(d.qb.Build("DELETE FROM profiles WHERE account_id = ?"), accountID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

// marshalList encodes nil as [] so the column default shape is kept.
func marshalList[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	b, err := json.Marshal(items)
	return string(b), err
}
