package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// -- users --

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, username, password_hash, role, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.Name, user.Email, user.Username, user.PasswordHash, user.Role, user.Image)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

const userColumns = `id, name, email, username, password_hash, role, COALESCE(image, ''), banned, COALESCE(ban_reason, ''), ban_expires, created_at, updated_at`

func (s *PostgresStore) scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.Role,
		&user.Image,
		&user.Banned,
		&user.BanReason,
		&user.BanExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username))
}

func (s *PostgresStore) UpdateUserImage(ctx context.Context, userID, imageURL string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET image=$2, updated_at=NOW() WHERE id=$1`, userID, imageURL)
	if err != nil {
		return fmt.Errorf("update user image: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

// -- password resets --

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets
		WHERE token=$1 AND used_at IS NULL AND expires_at > NOW()
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark password reset used: %w", err)
	}
	return nil
}

// -- refresh sessions (Postgres fallback when Redis is not configured) --

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.name, u.username, u.role, u.banned
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.Name, &user.Username, &user.Role, &user.Banned)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

// -- boards --

const boardColumns = `id, author_id, title, is_public, editors, data, created_at`

func scanBoard(scan func(dest ...any) error) (Board, error) {
	var item Board
	var editorsRaw []byte
	if err := scan(&item.ID, &item.AuthorID, &item.Title, &item.IsPublic, &editorsRaw, &item.Data, &item.CreatedAt); err != nil {
		return Board{}, err
	}
	_ = json.Unmarshal(editorsRaw, &item.Editors)
	if item.Editors == nil {
		item.Editors = []string{}
	}
	return item, nil
}

func (s *PostgresStore) InsertBoard(ctx context.Context, item Board) error {
	editors := item.Editors
	if editors == nil {
		editors = []string{}
	}
	encodedEditors, err := json.Marshal(editors)
	if err != nil {
		return fmt.Errorf("marshal board editors: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO boards (id, author_id, title, is_public, editors, data)
		VALUES ($1, $2, $3, $4, $5::jsonb, $6)
	`, item.ID, item.AuthorID, item.Title, item.IsPublic, string(encodedEditors), item.Data)
	if err != nil {
		return fmt.Errorf("insert board: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+boardColumns+` FROM boards WHERE id=$1`, boardID)
	return scanBoard(row.Scan)
}

// ListVisibleBoards returns every board the caller may read in one query:
// public boards, boards they author, and boards listing them as an editor.
// An empty callerID is anonymous and matches only public boards.
func (s *PostgresStore) ListVisibleBoards(ctx context.Context, callerID string) ([]Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE is_public = TRUE ORDER BY created_at DESC`
	args := []any{}
	if callerID != "" {
		query = `
			SELECT ` + boardColumns + `
			FROM boards
			WHERE is_public = TRUE OR author_id = $1 OR editors ? $1
			ORDER BY created_at DESC
		`
		args = append(args, callerID)
	}
	return s.queryBoards(ctx, query, args...)
}

// ListAllBoards returns every board, used to rebuild the search index.
func (s *PostgresStore) ListAllBoards(ctx context.Context) ([]Board, error) {
	return s.queryBoards(ctx, `SELECT `+boardColumns+` FROM boards ORDER BY created_at DESC`)
}

// ListSharedBoards returns boards where the caller appears in the editor list.
func (s *PostgresStore) ListSharedBoards(ctx context.Context, callerID string) ([]Board, error) {
	return s.queryBoards(ctx, `
		SELECT `+boardColumns+`
		FROM boards
		WHERE editors ? $1
		ORDER BY created_at DESC
	`, callerID)
}

func (s *PostgresStore) queryBoards(ctx context.Context, query string, args ...any) ([]Board, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		item, err := scanBoard(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

// UpdateBoardData replaces the full document in a single statement.
// Last writer wins; there is no version check.
func (s *PostgresStore) UpdateBoardData(ctx context.Context, boardID, data string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE boards SET data=$2 WHERE id=$1`, boardID, data)
	if err != nil {
		return fmt.Errorf("update board data: %w", err)
	}
	return nil
}
