package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"stocktrack-api/internal/model"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// MySQLStore implements Store using MySQL.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore creates a new MySQL store.
// dsn format: "user:password@tcp(host:port)/dbname?parseTime=true"
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	if err := createMySQLTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Println("[MySQLStore] Initialized")
	return &MySQLStore{db: db}, nil
}

func createMySQLTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS stock_items (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			image MEDIUMTEXT,
			quantity INT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			created_by VARCHAR(255) NOT NULL DEFAULT '',
			approved_at DATETIME NULL,
			approved_by VARCHAR(255) NOT NULL DEFAULT '',
			rejected_at DATETIME NULL,
			rejected_by VARCHAR(255) NOT NULL DEFAULT '',
			INDEX idx_stock_items_name (name),
			INDEX idx_stock_items_status (status)
		)`,
		`CREATE TABLE IF NOT EXISTS outbound_requests (
			id VARCHAR(36) PRIMARY KEY,
			item_id VARCHAR(36) NOT NULL DEFAULT '',
			item_name VARCHAR(255) NOT NULL,
			quantity INT NOT NULL,
			notes TEXT NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			created_at DATETIME NOT NULL,
			created_by VARCHAR(255) NOT NULL DEFAULT '',
			approved_at DATETIME NULL,
			approved_by VARCHAR(255) NOT NULL DEFAULT '',
			rejected_at DATETIME NULL,
			rejected_by VARCHAR(255) NOT NULL DEFAULT '',
			INDEX idx_outbound_requests_status (status)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			email VARCHAR(255) NOT NULL UNIQUE,
			role VARCHAR(16) NOT NULL DEFAULT 'user',
			created_at DATETIME NOT NULL
		)`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// CreateStockItem inserts a new stock item.
func (s *MySQLStore) CreateStockItem(ctx context.Context, item *model.StockItem) error {
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

// GetStockItem retrieves a stock item by id.
func (s *MySQLStore) GetStockItem(ctx context.Context, id string) (*model.StockItem, error) {
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
func (s *MySQLStore) ListStockItems(ctx context.Context) ([]model.StockItem, error) {
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
// expected current status.
func (s *MySQLStore) SetStockItemStatus(ctx context.Context, id string, from, to model.Status, actor string, at time.Time) error {
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
	return nil
}

// DeleteStockItem removes a stock item unconditionally.
func (s *MySQLStore) DeleteStockItem(ctx context.Context, id string) error {
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
func (s *MySQLStore) CreateOutboundRequest(ctx context.Context, req *model.OutboundRequest) error {
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

// GetOutboundRequest retrieves an outbound request by id.
func (s *MySQLStore) GetOutboundRequest(ctx context.Context, id string) (*model.OutboundRequest, error) {
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
func (s *MySQLStore) ListOutboundRequests(ctx context.Context) ([]model.OutboundRequest, error) {
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
func (s *MySQLStore) DeleteOutboundRequest(ctx context.Context, id string) error {
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
// in one transaction with conditional UPDATEs.
func (s *MySQLStore) ApproveOutbound(ctx context.Context, requestID, itemID string, quantity int, actor string, at time.Time) error {
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
func (s *MySQLStore) RejectOutbound(ctx context.Context, requestID, actor string, at time.Time) error {
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
func (s *MySQLStore) CreateUser(ctx context.Context, u *model.User) error {
	query := `INSERT INTO users (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.Role, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
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
func (s *MySQLStore) ListUsers(ctx context.Context) ([]model.User, error) {
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
func (s *MySQLStore) Stats(ctx context.Context) (map[string]interface{}, error) {
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Ensure MySQLStore implements Store
var _ Store = (*MySQLStore)(nil)
