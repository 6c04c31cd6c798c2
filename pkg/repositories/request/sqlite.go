package request

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/regalspin/gamepanel/pkg/entities"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite table schemas
const (
	createRequestsTableSQL = `
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		game_name TEXT NOT NULL,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		processed INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`

	createRequestIndexesSQL = `
	CREATE INDEX IF NOT EXISTS idx_requests_user_id ON requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests(user_id, status)
	`
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite request repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if _, err := db.Exec(createRequestsTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating requests table: %w", err)
	}

	if _, err := db.Exec(createRequestIndexesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating request indexes: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// CreateRequest persists a new request in pending status
func (r *SQLiteRepository) CreateRequest(ctx context.Context, req *entities.Request) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}
	req.Status = entities.RequestStatusPending
	req.Processed = false

	payload, err := entities.MarshalPayload(req.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO requests (id, user_id, game_id, game_name, type, payload, status, processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', 0, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.GameID,
		req.GameName,
		string(req.Type),
		string(payload),
		req.CreatedAt.Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	return nil
}

// GetRequest retrieves a request by owner and id
func (r *SQLiteRepository) GetRequest(ctx context.Context, userID, requestID string) (*entities.Request, error) {
	query := `
		SELECT id, user_id, game_id, game_name, type, payload, status, processed, created_at
		FROM requests
		WHERE user_id = ? AND id = ?
	`

	row := r.db.QueryRowContext(ctx, query, userID, requestID)
	req, err := scanRequest(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListPending retrieves all pending requests for a user, oldest first
func (r *SQLiteRepository) ListPending(ctx context.Context, userID string) ([]*entities.Request, error) {
	query := `
		SELECT id, user_id, game_id, game_name, type, payload, status, processed, created_at
		FROM requests
		WHERE user_id = ? AND status = 'pending'
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying pending requests: %w", err)
	}
	defer rows.Close()

	var pending []*entities.Request
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		pending = append(pending, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating request rows: %w", err)
	}

	return pending, nil
}

// ListUsersWithPending retrieves the ids of all users with at least one
// pending request
func (r *SQLiteRepository) ListUsersWithPending(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT user_id FROM requests WHERE status = 'pending' ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying users with pending requests: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("error scanning user id: %w", err)
		}
		users = append(users, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// HasPendingTransaction reports whether the user has a pending ADD or REDEEM
func (r *SQLiteRepository) HasPendingTransaction(ctx context.Context, userID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM requests
			WHERE user_id = ? AND status = 'pending' AND type IN ('ADD', 'REDEEM')
		)
	`

	var exists int
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking pending transactions: %w", err)
	}
	return exists != 0, nil
}

// HasPendingForGame reports whether the user has a pending request of the
// given type for a game
func (r *SQLiteRepository) HasPendingForGame(ctx context.Context, userID, gameID string, reqType entities.RequestType) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM requests
			WHERE user_id = ? AND game_id = ? AND type = ? AND status = 'pending'
		)
	`

	var exists int
	if err := r.db.QueryRowContext(ctx, query, userID, gameID, string(reqType)).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking pending requests for game: %w", err)
	}
	return exists != 0, nil
}

// MarkProcessed conditionally records the terminal status and processed
// flag. The WHERE clause makes the flag a compare-and-set: only one caller
// observes rowsAffected == 1 for a given request.
func (r *SQLiteRepository) MarkProcessed(ctx context.Context, userID, requestID string, status entities.RequestStatus) (bool, error) {
	query := `
		UPDATE requests
		SET status = ?, processed = 1
		WHERE user_id = ? AND id = ? AND processed = 0
	`

	result, err := r.db.ExecContext(ctx, query, string(status), userID, requestID)
	if err != nil {
		return false, fmt.Errorf("error marking request processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Either already processed or missing; distinguish for the caller
		if _, err := r.GetRequest(ctx, userID, requestID); err != nil {
			return false, err
		}
		return false, nil
	}

	return true, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanRequest(scan func(dest ...interface{}) error) (*entities.Request, error) {
	var req entities.Request
	var reqType, payload, status, createdAt string
	var processed int

	err := scan(
		&req.ID,
		&req.UserID,
		&req.GameID,
		&req.GameName,
		&reqType,
		&payload,
		&status,
		&processed,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("error scanning request row: %w", err)
	}

	req.Type = entities.RequestType(reqType)
	req.Status = entities.RequestStatus(status)
	req.Processed = processed != 0

	req.Payload, err = entities.UnmarshalPayload(req.Type, json.RawMessage(payload))
	if err != nil {
		return nil, err
	}

	req.CreatedAt, err = time.Parse(sqliteTimeFormat, createdAt)
	if err != nil {
		return nil, fmt.Errorf("error parsing timestamp '%s': %w", createdAt, err)
	}

	return &req, nil
}
