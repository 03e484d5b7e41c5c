// Package acl manages broker users and topic access rules in the
// mosquitto-go-auth style mqtt_user / mqtt_acl tables. It is the only write
// path the dashboard owns; everything else reads through the data API.
package acl

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested user or rule does not exist.
var ErrNotFound = errors.New("acl: not found")

// Access levels of an ACL rule, matching mosquitto-go-auth semantics.
const (
	AccessRead      = 1
	AccessWrite     = 2
	AccessReadWrite = 3
	AccessSubscribe = 4
)

// User is one broker credential row.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Superuser    bool   `json:"superuser"`
}

// Rule grants a user an access level on a topic filter.
type Rule struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Topic    string `json:"topic"`
	Access   int    `json:"access"`
}

// Store performs ACL reads and writes against Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps an existing connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// ListUsers returns all broker users, without password hashes.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, superuser FROM mqtt_user ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Superuser); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a broker user and returns it with its assigned ID.
func (s *Store) CreateUser(ctx context.Context, user User) (*User, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO mqtt_user (username, password_hash, superuser) VALUES ($1, $2, $3) RETURNING id`,
		user.Username, user.PasswordHash, user.Superuser,
	).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", user.Username, err)
	}
	return &user, nil
}

// UpdateUser changes a user's superuser flag and, when non-empty, its
// password hash.
func (s *Store) UpdateUser(ctx context.Context, user User) error {
	var err error
	if user.PasswordHash != "" {
		_, err = s.pool.Exec(ctx,
			`UPDATE mqtt_user SET password_hash = $2, superuser = $3 WHERE username = $1`,
			user.Username, user.PasswordHash, user.Superuser)
	} else {
		_, err = s.pool.Exec(ctx,
			`UPDATE mqtt_user SET superuser = $2 WHERE username = $1`,
			user.Username, user.Superuser)
	}
	if err != nil {
		return fmt.Errorf("failed to update user %q: %w", user.Username, err)
	}
	return nil
}

// DeleteUser removes a user and its rules.
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM mqtt_acl WHERE username = $1`, username); err != nil {
		return fmt.Errorf("failed to delete rules for %q: %w", username, err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM mqtt_user WHERE username = $1`, username)
	if err != nil {
		return fmt.Errorf("failed to delete user %q: %w", username, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// ListRules returns topic rules, optionally filtered by username.
func (s *Store) ListRules(ctx context.Context, username string) ([]Rule, error) {
	query := `SELECT id, username, topic, access FROM mqtt_acl ORDER BY username, topic`
	args := []any{}
	if username != "" {
		query = `SELECT id, username, topic, access FROM mqtt_acl WHERE username = $1 ORDER BY topic`
		args = append(args, username)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.Username, &rule.Topic, &rule.Access); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// CreateRule inserts a topic rule and returns it with its assigned ID.
func (s *Store) CreateRule(ctx context.Context, rule Rule) (*Rule, error) {
	if err := validAccess(rule.Access); err != nil {
		return nil, err
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO mqtt_acl (username, topic, access) VALUES ($1, $2, $3) RETURNING id`,
		rule.Username, rule.Topic, rule.Access,
	).Scan(&rule.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}
	return &rule, nil
}

// UpdateRule changes a rule's topic filter and access level.
func (s *Store) UpdateRule(ctx context.Context, rule Rule) error {
	if err := validAccess(rule.Access); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE mqtt_acl SET topic = $2, access = $3 WHERE id = $1`,
		rule.ID, rule.Topic, rule.Access)
	if err != nil {
		return fmt.Errorf("failed to update rule %d: %w", rule.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteRule removes a rule by ID.
func (s *Store) DeleteRule(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM mqtt_acl WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUser returns one user by name, or ErrNotFound.
func (s *Store) GetUser(ctx context.Context, username string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, superuser FROM mqtt_user WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Superuser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return &u, nil
}

func validAccess(access int) error {
	switch access {
	case AccessRead, AccessWrite, AccessReadWrite, AccessSubscribe:
		return nil
	default:
		return fmt.Errorf("acl: invalid access level %d", access)
	}
}
