package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"stocktrack-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteStore implements Store using SQLite. Thread-safe with WAL mode
// for high-concurrency reads; a single writer connection serializes
// mutations.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite store.
// dbPath is the path to the SQLite database file (e.g., "./data/stocktrack.db")
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite only supports 1 writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteStore] Initialized with database: %s", dbPath)
	return &SQLiteStore{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS stock_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		approved_at DATETIME,
		approved_by TEXT NOT NULL DEFAULT '',
		rejected_at DATETIME,
		rejected_by TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_stock_items_name ON stock_items(name);
	CREATE INDEX IF NOT EXISTS idx_stock_items_status ON stock_items(status);

	CREATE TABLE IF NOT EXISTS outbound_requests (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL DEFAULT '',
		item_name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		notes TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		created_by TEXT NOT NULL DEFAULT '',
		approved_at DATETIME,
		approved_by TEXT NOT NULL DEFAULT '',
		rejected_at DATETIME,
		rejected_by TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_outbound_requests_status ON outbound_requests(status);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL DEFAULT 'user',
		created_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

// CreateStockItem inserts a new stock item.
func (s *SQLiteStore) CreateStockItem(ctx context.Context, item *model.StockItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO stock_items (id, name, description, image, quantity, status, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		item.ID, item.Name, item.Description, item.Image,
		item.Quantity, item.Status, item.CreatedAt, item.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to insert stock item: %w", err)
	}
	return nil
}

const stockItemColumns = `id, name, description, image, quantity, status,
	created_at, created_by, approved_at, approved_by, rejected_at, rejected_by`

func scanStockItem(row interface{ Scan(...interface{}) error }) (*model.StockItem, error) {
	var item model.StockItem
	var approvedAt, rejectedAt sql.NullTime

	err := row.Scan(&item.ID, &item.Name, &item.Description, &item.Image,
		&item.Quantity, &item.Status, &item.CreatedAt, &item.CreatedBy,
		&approvedAt, &item.ApprovedBy, &rejectedAt, &item.RejectedBy)
	if err != nil {
		return nil, err
	}
	if approvedAt.Valid {
		item.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		item.RejectedAt = &rejectedAt.Time
	}
	return &item, nil
}

// GetStockItem retrieves a stock item by id.
func (s *SQLiteStore) GetStockItem(ctx context.Context, id string) (*model.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + stockItemColumns + ` FROM stock_items WHERE id = ?`

	item, err := scanStockItem(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock item: %w", err)
	}
	return item, nil
}

// ListStockItems returns all stock items ordered by creation time.
func (s *SQLiteStore) ListStockItems(ctx context.Context) ([]model.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + stockItemColumns + ` FROM stock_items ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock items: %w", err)
	}
	defer rows.Close()

	var items []model.StockItem
	for rows.Next() {
		item, err := scanStockItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// SetStockItemStatus flips a stock item's status with a guard on the
// expected current status. Quantity is untouched; inbound counts are
// authoritative at creation time.
func (s *SQLiteStore) SetStockItemStatus(ctx context.Context, id string, from, to model.Status, actor string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var query string
	switch to {
	case model.StatusApproved:
		query = `UPDATE stock_items SET status = ?, approved_at = ?, approved_by = ? WHERE id = ? AND status = ?`
	case model.StatusRejected:
		query = `UPDATE stock_items SET status = ?, rejected_at = ?, rejected_by = ? WHERE id = ? AND status = ?`
	default:
		return fmt.Errorf("unsupported status transition to %q", to)
	}

	result, err := s.db.ExecContext(ctx, query, to, at, actor, id, from)
	if err != nil {
		return fmt.Errorf("failed to update stock item status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return s.stockItemMissOrConflict(ctx, id)
	}
	return nil
}

func (s *SQLiteStore) stockItemMissOrConflict(ctx context.Context, id string) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM stock_items WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check stock item: %w", err)
	}
	return ErrStatusConflict
}

// DeleteStockItem removes a stock item unconditionally.
func (s *SQLiteStore) DeleteStockItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM stock_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stock item: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOutboundRequest inserts a new outbound request.
func (s *SQLiteStore) CreateOutboundRequest(ctx context.Context, req *model.OutboundRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO outbound_requests (id, item_id, item_name, quantity, notes, status, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		req.ID, req.ItemID, req.ItemName, req.Quantity, req.Notes,
		req.Status, req.CreatedAt, req.CreatedBy)
	if err != nil {
		return fmt.Errorf("failed to insert outbound request: %w", err)
	}
	return nil
}

const outboundColumns = `id, item_id, item_name, quantity, notes, status,
	created_at, created_by, approved_at, approved_by, rejected_at, rejected_by`

func scanOutboundRequest(row interface{ Scan(...interface{}) error }) (*model.OutboundRequest, error) {
	var req model.OutboundRequest
	var approvedAt, rejectedAt sql.NullTime

	err := row.Scan(&req.ID, &req.ItemID, &req.ItemName, &req.Quantity, &req.Notes,
		&req.Status, &req.CreatedAt, &req.CreatedBy,
		&approvedAt, &req.ApprovedBy, &rejectedAt, &req.RejectedBy)
	if err != nil {
		return nil, err
	}
	if approvedAt.Valid {
		req.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		req.RejectedAt = &rejectedAt.Time
	}
	return &req, nil
}

// GetOutboundRequest retrieves an outbound request by id.
func (s *SQLiteStore) GetOutboundRequest(ctx context.Context, id string) (*model.OutboundRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + outboundColumns + ` FROM outbound_requests WHERE id = ?`

	req, err := scanOutboundRequest(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbound request: %w", err)
	}
	return req, nil
}

// ListOutboundRequests returns all outbound requests ordered by creation time.
func (s *SQLiteStore) ListOutboundRequests(ctx context.Context) ([]model.OutboundRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + outboundColumns + ` FROM outbound_requests ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbound requests: %w", err)
	}
	defer rows.Close()

	var reqs []model.OutboundRequest
	for rows.Next() {
		req, err := scanOutboundRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbound request: %w", err)
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

// DeleteOutboundRequest removes an outbound request unconditionally.
// Deleting an approved request does not restore deducted stock.
func (s *SQLiteStore) DeleteOutboundRequest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `DELETE FROM outbound_requests WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete outbound request: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveOutbound flips the request pending->approved and deducts stock
// in one transaction. Both UPDATEs are conditional: the status guard
// rejects repeated or raced approvals, the quantity guard rejects
// over-deduction. Either both commit or neither does.
func (s *SQLiteStore) ApproveOutbound(ctx context.Context, requestID, itemID string, quantity int, actor string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE outbound_requests
		SET status = ?, approved_at = ?, approved_by = ?
		WHERE id = ? AND status = ?`,
		model.StatusApproved, at, actor, requestID, model.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to update outbound request: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM outbound_requests WHERE id = ?`, requestID).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check outbound request: %w", err)
		}
		return ErrStatusConflict
	}

	result, err = tx.ExecContext(ctx, `
		UPDATE stock_items
		SET quantity = quantity - ?
		WHERE id = ? AND quantity >= ?`,
		quantity, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}
	rows, _ = result.RowsAffected()
	if rows == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM stock_items WHERE id = ?`, itemID).Scan(&exists)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check stock item: %w", err)
		}
		return ErrInsufficientStock
	}

	return tx.Commit()
}

// RejectOutbound flips the request pending->rejected. No stock mutation.
func (s *SQLiteStore) RejectOutbound(ctx context.Context, requestID, actor string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE outbound_requests
		SET status = ?, rejected_at = ?, rejected_by = ?
		WHERE id = ? AND status = ?`,
		model.StatusRejected, at, actor, requestID, model.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to reject outbound request: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var status string
		err := s.db.QueryRowContext(ctx, `SELECT status FROM outbound_requests WHERE id = ?`, requestID).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check outbound request: %w", err)
		}
		return ErrStatusConflict
	}
	return nil
}

// CreateUser inserts a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, email, role, created_at FROM users WHERE email = ?`

	var u model.User
	err := s.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all user records.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, role, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Stats returns aggregate counts for the admin dashboard.
func (s *SQLiteStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]interface{})

	var totalItems, totalUnits int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM stock_items`).Scan(&totalItems, &totalUnits); err != nil {
		return nil, err
	}
	stats["stock_items"] = totalItems
	stats["stock_units"] = totalUnits

	var totalRequests, pendingRequests int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) FROM outbound_requests`).Scan(&totalRequests, &pendingRequests); err != nil {
		return nil, err
	}
	stats["outbound_requests"] = totalRequests
	stats["pending_requests"] = pendingRequests

	return stats, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)
