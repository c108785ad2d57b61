package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/varsitymarket/backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
	ErrInvalidParticipants  = errors.New("conversation requires two distinct participants")
	ErrNotAParticipant      = errors.New("user is not a participant in this conversation")
	ErrForbidden            = errors.New("operation only allowed for the message sender")
	ErrConversationClosed   = errors.New("conversation is no longer active")
	ErrEmptyContent         = errors.New("message content cannot be empty")
	ErrMessageDeleted       = errors.New("message has been deleted")
)

type PostgresDB struct {
	*sql.DB
}

func NewPostgresDB(connStr string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresDB{db}, nil
}

func (db *PostgresDB) CreateUser(username, email, passwordHash string) (*models.User, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM users WHERE username = $1 OR email = $2",
		username, email).Scan(&count)
	if err != nil {
		return nil, err
	}

	if count > 0 {
		return nil, ErrUserAlreadyExists
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
		LastSeen:     time.Now().UTC(),
	}

	_, err = db.Exec(
		"INSERT INTO users (id, username, email, password_hash, created_at, last_seen) VALUES ($1, $2, $3, $4, $5, $6)",
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.LastSeen,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByEmail(email string) (*models.User, error) {
	user := &models.User{}

	err := db.QueryRow(`
		SELECT id, username, email, password_hash,
		       COALESCE(display_name, ''), COALESCE(avatar_url, ''),
		       created_at, last_seen
		FROM users WHERE email = $1`, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.DisplayName, &user.AvatarURL, &user.CreatedAt, &user.LastSeen)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(id uuid.UUID) (*models.User, error) {
	user := &models.User{}

	err := db.QueryRow(`
		SELECT id, username, email, password_hash,
		       COALESCE(display_name, ''), COALESCE(avatar_url, ''),
		       created_at, last_seen
		FROM users WHERE id = $1`, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.DisplayName, &user.AvatarURL, &user.CreatedAt, &user.LastSeen)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) UpdateLastSeen(userID uuid.UUID) error {
	result, err := db.Exec("UPDATE users SET last_seen = $1 WHERE id = $2",
		time.Now().UTC(), userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (db *PostgresDB) GetAllUsers(excludeUserID uuid.UUID) ([]*models.User, error) {
	rows, err := db.Query(`
		SELECT id, username, email, password_hash,
		       COALESCE(display_name, ''), COALESCE(avatar_url, ''),
		       created_at, last_seen
		FROM users
		WHERE id != $1
		ORDER BY username`, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.Username, &user.Email, &user.PasswordHash,
			&user.DisplayName, &user.AvatarURL, &user.CreatedAt, &user.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, &user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

func (db *PostgresDB) Close() error {
	return db.DB.Close()
}

func (db *PostgresDB) Exec(query string, args ...interface{}) (ExecResult, error) {
	return db.DB.Exec(query, args...)
}
