package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/regalspin/gamepanel/pkg/entities"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite table schemas
const (
	createWalletsTableSQL = `
	CREATE TABLE IF NOT EXISTS wallets (
		user_id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	createAccountsTableSQL = `
	CREATE TABLE IF NOT EXISTS game_accounts (
		user_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		password TEXT NOT NULL DEFAULT '',
		free_play_redeemed INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, game_id)
	)`

	createCashAddsTableSQL = `
	CREATE TABLE IF NOT EXISTS cash_adds (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		game_id TEXT NOT NULL,
		amount INTEGER NOT NULL,
		added_at TIMESTAMP NOT NULL
	)`

	createHistoryTableSQL = `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		request_id TEXT,
		action TEXT NOT NULL,
		game TEXT,
		amount INTEGER,
		reason TEXT,
		counterparty TEXT,
		is_error INTEGER NOT NULL DEFAULT 0,
		timestamp TIMESTAMP NOT NULL
	)`

	createHistoryIndexesSQL = `
	CREATE INDEX IF NOT EXISTS idx_history_user_id ON history(user_id);
	CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp DESC)
	`
)

const sqliteTimeFormat = "2006-01-02 15:04:05"

// SQLiteRepository implements Repository using SQLite
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("error creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	for _, schema := range []string{
		createWalletsTableSQL,
		createAccountsTableSQL,
		createCashAddsTableSQL,
		createHistoryTableSQL,
		createHistoryIndexesSQL,
	} {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating ledger tables: %w", err)
		}
	}

	return &SQLiteRepository{db: db}, nil
}

// GetWallet retrieves a wallet by user ID
func (r *SQLiteRepository) GetWallet(ctx context.Context, userID string) (*entities.Wallet, error) {
	query := `SELECT user_id, balance, updated_at FROM wallets WHERE user_id = ?`

	var wallet entities.Wallet
	var updatedAt string

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&wallet.UserID,
		&wallet.Balance,
		&updatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("error getting wallet: %w", err)
	}

	wallet.LastUpdated, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}

	return &wallet, nil
}

// SaveWallet creates or updates a wallet
func (r *SQLiteRepository) SaveWallet(ctx context.Context, wallet *entities.Wallet) error {
	formattedTime := time.Now().Format(sqliteTimeFormat)

	query := `
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			balance = ?,
			updated_at = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		wallet.UserID, wallet.Balance, formattedTime,
		wallet.Balance, formattedTime,
	)

	if err != nil {
		log.Printf("[LEDGER_REPO] Error saving wallet for user %s: %v", wallet.UserID, err)
		return fmt.Errorf("error saving wallet: %w", err)
	}

	return nil
}

// AdjustBalance atomically adds delta to a wallet's balance. The WHERE
// clause rejects updates that would drive the balance negative, so the
// check and the write are a single statement.
func (r *SQLiteRepository) AdjustBalance(ctx context.Context, userID string, delta int64) error {
	formattedTime := time.Now().Format(sqliteTimeFormat)

	query := `
		UPDATE wallets
		SET balance = balance + ?,
			updated_at = ?
		WHERE user_id = ? AND balance + ? >= 0
	`

	result, err := r.db.ExecContext(ctx, query, delta, formattedTime, userID, delta)
	if err != nil {
		return fmt.Errorf("error adjusting balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Distinguish a missing wallet from a blocked over-debit
		if _, err := r.GetWallet(ctx, userID); err != nil {
			return err
		}
		return ErrInsufficientFunds
	}

	return nil
}

// Transfer atomically moves amount from one wallet to another inside a
// single database transaction
func (r *SQLiteRepository) Transfer(ctx context.Context, fromUserID, toUserID string, amount int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transfer: %w", err)
	}
	defer tx.Rollback()

	formattedTime := time.Now().Format(sqliteTimeFormat)

	debit := `
		UPDATE wallets
		SET balance = balance - ?, updated_at = ?
		WHERE user_id = ? AND balance >= ?
	`
	result, err := tx.ExecContext(ctx, debit, amount, formattedTime, fromUserID, amount)
	if err != nil {
		return fmt.Errorf("error debiting sender: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetWallet(ctx, fromUserID); err != nil {
			return err
		}
		return ErrInsufficientFunds
	}

	credit := `
		UPDATE wallets
		SET balance = balance + ?, updated_at = ?
		WHERE user_id = ?
	`
	result, err = tx.ExecContext(ctx, credit, amount, formattedTime, toUserID)
	if err != nil {
		return fmt.Errorf("error crediting receiver: %w", err)
	}
	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrWalletNotFound
	}

	return tx.Commit()
}

// GetAccount retrieves the stored state for a (user, game) pair
func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, gameID string) (*entities.GameAccount, error) {
	query := `
		SELECT user_id, game_id, password, free_play_redeemed, updated_at
		FROM game_accounts
		WHERE user_id = ? AND game_id = ?
	`

	var account entities.GameAccount
	var redeemed int
	var updatedAt string

	err := r.db.QueryRowContext(ctx, query, userID, gameID).Scan(
		&account.UserID,
		&account.GameID,
		&account.Password,
		&redeemed,
		&updatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("error getting game account: %w", err)
	}

	account.FreePlayRedeemed = redeemed != 0
	account.UpdatedAt, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// ListAccounts retrieves all game accounts for a user
func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]*entities.GameAccount, error) {
	query := `
		SELECT user_id, game_id, password, free_play_redeemed, updated_at
		FROM game_accounts
		WHERE user_id = ?
		ORDER BY game_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying game accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*entities.GameAccount
	for rows.Next() {
		var account entities.GameAccount
		var redeemed int
		var updatedAt string

		if err := rows.Scan(&account.UserID, &account.GameID, &account.Password, &redeemed, &updatedAt); err != nil {
			return nil, fmt.Errorf("error scanning game account row: %w", err)
		}

		account.FreePlayRedeemed = redeemed != 0
		account.UpdatedAt, err = parseTimestamp(updatedAt)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, &account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game account rows: %w", err)
	}

	return accounts, nil
}

// SaveCredential creates or replaces the credential for a (user, game) pair
func (r *SQLiteRepository) SaveCredential(ctx context.Context, userID, gameID, password string) error {
	formattedTime := time.Now().Format(sqliteTimeFormat)

	query := `
		INSERT INTO game_accounts (user_id, game_id, password, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, game_id) DO UPDATE SET
			password = ?,
			updated_at = ?
	`

	_, err := r.db.ExecContext(ctx, query,
		userID, gameID, password, formattedTime,
		password, formattedTime,
	)
	if err != nil {
		return fmt.Errorf("error saving credential: %w", err)
	}

	return nil
}

// SetFreePlayRedeemed marks the one-time free play as claimed
func (r *SQLiteRepository) SetFreePlayRedeemed(ctx context.Context, userID, gameID string) error {
	formattedTime := time.Now().Format(sqliteTimeFormat)

	query := `
		INSERT INTO game_accounts (user_id, game_id, free_play_redeemed, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(user_id, game_id) DO UPDATE SET
			free_play_redeemed = 1,
			updated_at = ?
	`

	_, err := r.db.ExecContext(ctx, query, userID, gameID, formattedTime, formattedTime)
	if err != nil {
		return fmt.Errorf("error setting free play flag: %w", err)
	}

	return nil
}

// RecordCashAdd appends an approved deposit, keeping the two most recent
func (r *SQLiteRepository) RecordCashAdd(ctx context.Context, userID, gameID string, amount int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning cash add: %w", err)
	}
	defer tx.Rollback()

	insert := `INSERT INTO cash_adds (id, user_id, game_id, amount, added_at) VALUES (?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, insert,
		uuid.New().String(), userID, gameID, amount, time.Now().Format(sqliteTimeFormat))
	if err != nil {
		return fmt.Errorf("error recording cash add: %w", err)
	}

	prune := `
		DELETE FROM cash_adds
		WHERE user_id = ? AND game_id = ? AND id NOT IN (
			SELECT id FROM cash_adds
			WHERE user_id = ? AND game_id = ?
			ORDER BY added_at DESC LIMIT 2
		)
	`
	if _, err := tx.ExecContext(ctx, prune, userID, gameID, userID, gameID); err != nil {
		return fmt.Errorf("error pruning cash adds: %w", err)
	}

	return tx.Commit()
}

// GetCashAdds retrieves the retained recent deposits for a (user, game) pair
func (r *SQLiteRepository) GetCashAdds(ctx context.Context, userID, gameID string) ([]entities.CashAdd, error) {
	query := `
		SELECT amount, added_at FROM cash_adds
		WHERE user_id = ? AND game_id = ?
		ORDER BY added_at
	`

	rows, err := r.db.QueryContext(ctx, query, userID, gameID)
	if err != nil {
		return nil, fmt.Errorf("error querying cash adds: %w", err)
	}
	defer rows.Close()

	var adds []entities.CashAdd
	for rows.Next() {
		var add entities.CashAdd
		var addedAt string
		if err := rows.Scan(&add.Amount, &addedAt); err != nil {
			return nil, fmt.Errorf("error scanning cash add row: %w", err)
		}
		add.Date, err = parseTimestamp(addedAt)
		if err != nil {
			return nil, err
		}
		adds = append(adds, add)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cash add rows: %w", err)
	}

	return adds, nil
}

// AddHistory appends a write-once history entry
func (r *SQLiteRepository) AddHistory(ctx context.Context, entry *entities.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	query := `
		INSERT INTO history (
			id, user_id, request_id, action, game, amount, reason, counterparty, is_error, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	isError := 0
	if entry.IsError {
		isError = 1
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.RequestID,
		entry.Action,
		entry.Details.Game,
		entry.Details.Amount,
		entry.Details.Reason,
		entry.Details.Counterparty,
		isError,
		entry.Timestamp.Format(sqliteTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("error adding history entry: %w", err)
	}

	return nil
}

// GetHistory retrieves recent history entries for a user, newest first
func (r *SQLiteRepository) GetHistory(ctx context.Context, userID string, limit int) ([]*entities.HistoryEntry, error) {
	query := `
		SELECT id, user_id, request_id, action, game, amount, reason, counterparty, is_error, timestamp
		FROM history
		WHERE user_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// GetHistorySince retrieves entries written at or after since, ordered by
// (timestamp, id). The id tiebreak lets callers page past runs of equal
// second-resolution timestamps.
func (r *SQLiteRepository) GetHistorySince(ctx context.Context, since time.Time, afterID string, limit int) ([]*entities.HistoryEntry, error) {
	query := `
		SELECT id, user_id, request_id, action, game, amount, reason, counterparty, is_error, timestamp
		FROM history
		WHERE timestamp > ? OR (timestamp = ? AND id > ?)
		ORDER BY timestamp, id
		LIMIT ?
	`

	formatted := since.Format(sqliteTimeFormat)
	rows, err := r.db.QueryContext(ctx, query, formatted, formatted, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func scanHistoryRows(rows *sql.Rows) ([]*entities.HistoryEntry, error) {
	var entries []*entities.HistoryEntry

	for rows.Next() {
		var entry entities.HistoryEntry
		var isError int
		var timestamp string

		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.RequestID,
			&entry.Action,
			&entry.Details.Game,
			&entry.Details.Amount,
			&entry.Details.Reason,
			&entry.Details.Counterparty,
			&isError,
			&timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning history row: %w", err)
		}

		entry.IsError = isError != 0
		entry.Timestamp, err = parseTimestamp(timestamp)
		if err != nil {
			return nil, err
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return entries, nil
}

// parseTimestamp tries the formats SQLite is known to hand back
func parseTimestamp(value string) (time.Time, error) {
	formats := []string{
		sqliteTimeFormat,            // SQLite default format
		"2006-01-02T15:04:05Z",      // ISO 8601 format
		"2006-01-02T15:04:05-07:00", // ISO 8601 with timezone
		time.RFC3339,
	}

	var parseErr error
	for _, format := range formats {
		t, err := time.Parse(format, value)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}

	return time.Time{}, fmt.Errorf("error parsing timestamp '%s': %w", value, parseErr)
}
