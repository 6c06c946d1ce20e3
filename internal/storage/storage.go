// Package storage defines the persistence model shared by the PostgreSQL and
// in-memory backends: player accounts and finished battle reports.
package storage

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAccountNotFound is returned when an account lookup yields no results.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned when attempting to create a duplicate username.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidCredentials is returned when authentication fails.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Account is a player account.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Report is the persisted result of one finished battle.
type Report struct {
	ID              int64     `json:"id"`
	SessionID       string    `json:"session_id"`
	Owner           string    `json:"owner"`
	Hero            string    `json:"hero"`
	Encounter       string    `json:"encounter"`
	Victory         bool      `json:"victory"`
	ElapsedTicks    int       `json:"elapsed_ticks"`
	EnemiesDefeated int       `json:"enemies_defeated"`
	EnemyCount      int       `json:"enemy_count"`
	DamageDealt     int       `json:"damage_dealt"`
	DamageTaken     int       `json:"damage_taken"`
	HealingDone     int       `json:"healing_done"`
	CriticalHits    int       `json:"critical_hits"`
	TimedOut        bool      `json:"timed_out"`
	Fled            bool      `json:"fled"`
	Rating          string    `json:"rating"`
	CreatedAt       time.Time `json:"created_at"`
}

// Standing is one leaderboard row.
type Standing struct {
	Owner           string `json:"owner"`
	Victories       int    `json:"victories"`
	Defeats         int    `json:"defeats"`
	EnemiesDefeated int    `json:"enemies_defeated"`
}

// AccountStore persists accounts.
type AccountStore interface {
	// Create returns ErrAccountExists for a taken username.
	Create(ctx context.Context, username, password string) (Account, error)
	// Authenticate returns ErrAccountNotFound or ErrInvalidCredentials on failure.
	Authenticate(ctx context.Context, username, password string) (Account, error)
	GetByUsername(ctx context.Context, username string) (Account, error)
}

// ReportStore persists battle reports.
type ReportStore interface {
	// Save stores r and returns it with ID and CreatedAt set.
	Save(ctx context.Context, r Report) (Report, error)
	// ListByOwner returns owner's most recent reports, newest first.
	ListByOwner(ctx context.Context, owner string, limit int) ([]Report, error)
	// Leaderboard ranks owners by victories, then enemies defeated, then name.
	Leaderboard(ctx context.Context, limit int) ([]Standing, error)
}

// HashPassword creates a bcrypt hash of the given password.
//
// Precondition: password must be non-empty.
// Postcondition: Returns a bcrypt hash string.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
