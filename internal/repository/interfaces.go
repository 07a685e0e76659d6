package repository

import (
	"context"
	"errors"
	"time"

	"stocktrack-api/internal/model"
)

// Store errors shared by all backends. Callers translate these into
// user-facing errors with the context they hold (names, quantities).
var (
	// ErrNotFound indicates the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict indicates a guarded status transition found the
	// record in a state other than the expected one. Every transition is
	// a compare against the current status, so a raced or repeated
	// approval surfaces here instead of mutating twice.
	ErrStatusConflict = errors.New("record is not in the expected status")

	// ErrInsufficientStock indicates the conditional quantity deduction
	// found fewer units on hand than requested. No mutation happened.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Store defines data access for stock items, outbound requests and users.
// Implementations must make ApproveOutbound atomic: the request status
// flip and the stock deduction commit together or not at all, and the
// deduction only succeeds while quantity covers the request. Two racing
// approvals against the same item can never both pass the quantity guard.
type Store interface {
	// Stock items (inbound records)
	CreateStockItem(ctx context.Context, item *model.StockItem) error
	GetStockItem(ctx context.Context, id string) (*model.StockItem, error)
	ListStockItems(ctx context.Context) ([]model.StockItem, error)
	// SetStockItemStatus flips status from->to and stamps the audit
	// fields. Returns ErrStatusConflict if the current status differs
	// from the expected one. Inbound approval never touches quantity.
	SetStockItemStatus(ctx context.Context, id string, from, to model.Status, actor string, at time.Time) error
	DeleteStockItem(ctx context.Context, id string) error

	// Outbound requests
	CreateOutboundRequest(ctx context.Context, req *model.OutboundRequest) error
	GetOutboundRequest(ctx context.Context, id string) (*model.OutboundRequest, error)
	ListOutboundRequests(ctx context.Context) ([]model.OutboundRequest, error)
	DeleteOutboundRequest(ctx context.Context, id string) error

	// ApproveOutbound atomically transitions the request pending->approved
	// and deducts quantity units from the stock item, conditional on the
	// request still being pending and the item holding at least quantity.
	ApproveOutbound(ctx context.Context, requestID, itemID string, quantity int, actor string, at time.Time) error

	// RejectOutbound transitions pending->rejected. Never touches stock.
	RejectOutbound(ctx context.Context, requestID, actor string, at time.Time) error

	// Users (read path for role resolution, plus seeding)
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	// Stats returns aggregate counts for the admin dashboard.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the underlying connection.
	Close() error
}
