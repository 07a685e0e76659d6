package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stocktrack-api/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func insertItem(t *testing.T, store *SQLiteStore, id, name string, quantity int, status model.Status) {
	t.Helper()
	err := store.CreateStockItem(context.Background(), &model.StockItem{
		ID:        id,
		Name:      name,
		Quantity:  quantity,
		Status:    status,
		CreatedAt: time.Now().UTC(),
		CreatedBy: "seed@example.com",
	})
	if err != nil {
		t.Fatalf("CreateStockItem: %v", err)
	}
}

func insertRequest(t *testing.T, store *SQLiteStore, id, itemID, itemName string, quantity int) {
	t.Helper()
	err := store.CreateOutboundRequest(context.Background(), &model.OutboundRequest{
		ID:        id,
		ItemID:    itemID,
		ItemName:  itemName,
		Quantity:  quantity,
		Notes:     "test",
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateOutboundRequest: %v", err)
	}
}

func TestSQLiteStore_StockItemCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertItem(t, store, "item-1", "Widget", 10, model.StatusPending)

	item, err := store.GetStockItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("GetStockItem: %v", err)
	}
	if item.Name != "Widget" || item.Quantity != 10 || item.Status != model.StatusPending {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.ApprovedAt != nil || item.RejectedAt != nil {
		t.Errorf("expected nil audit stamps on a fresh item: %+v", item)
	}

	items, err := store.ListStockItems(ctx)
	if err != nil {
		t.Fatalf("ListStockItems: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	if err := store.DeleteStockItem(ctx, "item-1"); err != nil {
		t.Fatalf("DeleteStockItem: %v", err)
	}
	if _, err := store.GetStockItem(ctx, "item-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteStockItem(ctx, "item-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestSQLiteStore_SetStockItemStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	insertItem(t, store, "item-1", "Widget", 10, model.StatusPending)

	err := store.SetStockItemStatus(ctx, "item-1", model.StatusPending, model.StatusApproved, "admin@example.com", at)
	if err != nil {
		t.Fatalf("SetStockItemStatus: %v", err)
	}

	item, _ := store.GetStockItem(ctx, "item-1")
	if item.Status != model.StatusApproved || item.ApprovedBy != "admin@example.com" || item.ApprovedAt == nil {
		t.Errorf("approval stamps missing: %+v", item)
	}
	if item.Quantity != 10 {
		t.Errorf("status flip must not touch quantity, got %d", item.Quantity)
	}

	// A second transition finds the guard failing.
	err = store.SetStockItemStatus(ctx, "item-1", model.StatusPending, model.StatusRejected, "admin@example.com", at)
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}

	err = store.SetStockItemStatus(ctx, "missing", model.StatusPending, model.StatusApproved, "admin@example.com", at)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_ApproveOutbound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	insertItem(t, store, "item-1", "Widget", 10, model.StatusApproved)
	insertRequest(t, store, "req-1", "item-1", "Widget", 4)

	if err := store.ApproveOutbound(ctx, "req-1", "item-1", 4, "admin@example.com", at); err != nil {
		t.Fatalf("ApproveOutbound: %v", err)
	}

	item, _ := store.GetStockItem(ctx, "item-1")
	if item.Quantity != 6 {
		t.Errorf("expected quantity 6, got %d", item.Quantity)
	}
	req, _ := store.GetOutboundRequest(ctx, "req-1")
	if req.Status != model.StatusApproved || req.ApprovedBy != "admin@example.com" || req.ApprovedAt == nil {
		t.Errorf("approval stamps missing: %+v", req)
	}

	// Repeating the approval hits the status guard, stock stays put.
	err := store.ApproveOutbound(ctx, "req-1", "item-1", 4, "admin@example.com", at)
	if !errors.Is(err, ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict, got %v", err)
	}
	item, _ = store.GetStockItem(ctx, "item-1")
	if item.Quantity != 6 {
		t.Errorf("expected quantity still 6, got %d", item.Quantity)
	}
}

func TestSQLiteStore_ApproveOutbound_InsufficientStock(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	insertItem(t, store, "item-1", "Widget", 3, model.StatusApproved)
	insertRequest(t, store, "req-1", "item-1", "Widget", 4)

	err := store.ApproveOutbound(ctx, "req-1", "item-1", 4, "admin@example.com", at)
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// The transaction rolled back: request still pending, stock intact.
	req, _ := store.GetOutboundRequest(ctx, "req-1")
	if req.Status != model.StatusPending {
		t.Errorf("expected request still pending, got %s", req.Status)
	}
	item, _ := store.GetStockItem(ctx, "item-1")
	if item.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", item.Quantity)
	}
}

func TestSQLiteStore_ApproveOutbound_MissingRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	err := store.ApproveOutbound(ctx, "missing", "item-1", 1, "admin@example.com", at)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing request, got %v", err)
	}

	insertRequest(t, store, "req-1", "ghost", "Widget", 1)
	err = store.ApproveOutbound(ctx, "req-1", "ghost", 1, "admin@example.com", at)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing item, got %v", err)
	}

	// Rollback left the request pending for a retry after the fix.
	req, _ := store.GetOutboundRequest(ctx, "req-1")
	if req.Status != model.StatusPending {
		t.Errorf("expected request still pending, got %s", req.Status)
	}
}

func TestSQLiteStore_RejectOutbound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	insertItem(t, store, "item-1", "Widget", 10, model.StatusApproved)
	insertRequest(t, store, "req-1", "item-1", "Widget", 4)

	if err := store.RejectOutbound(ctx, "req-1", "admin@example.com", at); err != nil {
		t.Fatalf("RejectOutbound: %v", err)
	}

	req, _ := store.GetOutboundRequest(ctx, "req-1")
	if req.Status != model.StatusRejected || req.RejectedBy != "admin@example.com" || req.RejectedAt == nil {
		t.Errorf("rejection stamps missing: %+v", req)
	}
	item, _ := store.GetStockItem(ctx, "item-1")
	if item.Quantity != 10 {
		t.Errorf("rejection must not touch stock, got quantity %d", item.Quantity)
	}

	if err := store.RejectOutbound(ctx, "req-1", "admin@example.com", at); !errors.Is(err, ErrStatusConflict) {
		t.Errorf("expected ErrStatusConflict rejecting twice, got %v", err)
	}
	if err := store.RejectOutbound(ctx, "missing", "admin@example.com", at); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.CreateUser(ctx, &model.User{
		ID:        "user-1",
		Name:      "Administrator",
		Email:     "admin@example.com",
		Role:      model.RoleAdmin,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := store.GetUserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if u.Role != model.RoleAdmin || !u.IsAdmin() {
		t.Errorf("unexpected user: %+v", u)
	}

	if _, err := store.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	users, err := store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Errorf("expected 1 user, got %d", len(users))
	}
}

func TestSQLiteStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	insertItem(t, store, "item-1", "Widget", 10, model.StatusApproved)
	insertItem(t, store, "item-2", "Gadget", 5, model.StatusPending)
	insertRequest(t, store, "req-1", "item-1", "Widget", 4)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["stock_items"] != int64(2) {
		t.Errorf("expected 2 stock items, got %v", stats["stock_items"])
	}
	if stats["stock_units"] != int64(15) {
		t.Errorf("expected 15 stock units, got %v", stats["stock_units"])
	}
	if stats["pending_requests"] != int64(1) {
		t.Errorf("expected 1 pending request, got %v", stats["pending_requests"])
	}
}
