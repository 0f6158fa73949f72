package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/lawnchairsociety/battalionsim/internal/logger"
)

// bcryptCost trades login latency for hash strength.
const bcryptCost = 12

var (
	// ErrAccountNotFound is returned when an account lookup fails.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned when the username is taken, ignoring case.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidCredentials is returned for a wrong username or password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidUsername is returned for an empty or overlong username.
	ErrInvalidUsername = errors.New("username must be 1 to 32 characters")
)

const maxUsernameLength = 32

// Account is a profile owner.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	LastLogin    *time.Time
	LastIP       string
}

// CreateAccount stores a new account with a bcrypt hash of password.
// Password policy is enforced by the caller.
func (d *Database) CreateAccount(username, password string) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return nil, ErrInvalidUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query := d.qb.BuildWithReturning("INSERT INTO accounts (username, password_hash) VALUES (?, ?)", "id")

	var id int64
	if d.dialect.SupportsLastInsertID() {
		var result sql.Result
		result, err = d.db.Exec(query, username, string(hash))
		if err == nil {
			id, err = result.LastInsertId()
		}
	} else {
		err = d.db.QueryRow(query, username, string(hash)).Scan(&id)
	}
	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return &Account{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}, nil
}

// ValidateLogin returns the account when password matches, and records the
// login time and address.
func (d *Database) ValidateLogin(username, password, ipAddress string) (*Account, error) {
	account, err := d.GetAccountByUsername(username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := d.updateLastLogin(account.ID, ipAddress); err != nil {
		logger.Warning("Failed to update last login", "account", account.Username, "error", err)
	}
	return account, nil
}

// GetAccountByUsername looks an account up, ignoring case.
func (d *Database) GetAccountByUsername(username string) (*Account, error) {
	var account Account
	var lastLogin sql.NullTime
	var lastIP sql.NullString

	err := d.db.QueryRow(
		d.qb.Build("SELECT id, username, password_hash, created_at, last_login, last_ip FROM accounts WHERE username = ?"),
		strings.TrimSpace(username),
	).Scan(&account.ID, &account.Username, &account.PasswordHash, &account.CreatedAt, &lastLogin, &lastIP)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if lastLogin.Valid {
		account.LastLogin = &lastLogin.Time
	}
	account.LastIP = lastIP.String
	return &account, nil
}

// AccountExists reports whether username is taken.
func (d *Database) AccountExists(username string) (bool, error) {
	var count int
	err := d.db.QueryRow(d.qb.Build("SELECT COUNT(*) FROM accounts WHERE username = ?"), strings.TrimSpace(username)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return count > 0, nil
}

// DeleteAccount removes an account and its profile. The profile is deleted
// explicitly since SQLite only cascades on connections with foreign_keys on.
func (d *Database) DeleteAccount(accountID int64) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(d.qb.Build("DELETE FROM profiles WHERE account_id = ?"), accountID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	result, err := tx.Exec(d.qb.Build("DELETE FROM accounts WHERE id = ?"), accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrAccountNotFound
	}
	return tx.Commit()
}

func (d *Database) updateLastLogin(accountID int64, ipAddress string) error {
	_, err := d.db.Exec(
		d.qb.Build("UPDATE accounts SET last_login = CURRENT_TIMESTAMP, last_ip = ? WHERE id = ?"),
		ipAddress, accountID,
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}
