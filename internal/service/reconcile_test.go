package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stocktrack-api/internal/model"
	"stocktrack-api/internal/notify"
	"stocktrack-api/internal/repository"
)

// mockStore is an in-memory Store with the same guard semantics as the
// real backends: status transitions compare against the expected current
// status and the approval deduction is conditional on quantity.
type mockStore struct {
	mu       sync.Mutex
	items    map[string]*model.StockItem
	requests map[string]*model.OutboundRequest
	users    map[string]*model.User
}

func newMockStore() *mockStore {
	return &mockStore{
		items:    make(map[string]*model.StockItem),
		requests: make(map[string]*model.OutboundRequest),
		users:    make(map[string]*model.User),
	}
}

func (m *mockStore) CreateStockItem(ctx context.Context, item *model.StockItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *item
	m.items[item.ID] = &cp
	return nil
}

func (m *mockStore) GetStockItem(ctx context.Context, id string) (*model.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *mockStore) ListStockItems(ctx context.Context) ([]model.StockItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.StockItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, nil
}

func (m *mockStore) SetStockItemStatus(ctx context.Context, id string, from, to model.Status, actor string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if item.Status != from {
		return repository.ErrStatusConflict
	}
	item.Status = to
	switch to {
	case model.StatusApproved:
		item.ApprovedAt, item.ApprovedBy = &at, actor
	case model.StatusRejected:
		item.RejectedAt, item.RejectedBy = &at, actor
	}
	return nil
}

func (m *mockStore) DeleteStockItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockStore) CreateOutboundRequest(ctx context.Context, req *model.OutboundRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *req
	m.requests[req.ID] = &cp
	return nil
}

func (m *mockStore) GetOutboundRequest(ctx context.Context, id string) (*model.OutboundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (m *mockStore) ListOutboundRequests(ctx context.Context) ([]model.OutboundRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.OutboundRequest, 0, len(m.requests))
	for _, req := range m.requests {
		out = append(out, *req)
	}
	return out, nil
}

func (m *mockStore) DeleteOutboundRequest(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.requests, id)
	return nil
}

func (m *mockStore) ApproveOutbound(ctx context.Context, requestID, itemID string, quantity int, actor string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != model.StatusPending {
		return repository.ErrStatusConflict
	}
	item, ok := m.items[itemID]
	if !ok {
		return repository.ErrNotFound
	}
	if item.Quantity < quantity {
		return repository.ErrInsufficientStock
	}
	item.Quantity -= quantity
	req.Status = model.StatusApproved
	req.ApprovedAt, req.ApprovedBy = &at, actor
	return nil
}

func (m *mockStore) RejectOutbound(ctx context.Context, requestID, actor string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[requestID]
	if !ok {
		return repository.ErrNotFound
	}
	if req.Status != model.StatusPending {
		return repository.ErrStatusConflict
	}
	req.Status = model.StatusRejected
	req.RejectedAt, req.RejectedBy = &at, actor
	return nil
}

func (m *mockStore) CreateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.Email] = &cp
	return nil
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) ListUsers(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]interface{}{
		"stock_items":       len(m.items),
		"outbound_requests": len(m.requests),
	}, nil
}

func (m *mockStore) Close() error { return nil }

var _ repository.Store = (*mockStore)(nil)

// recordingNotifier captures the alerts it receives.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []model.OutboundAlert
}

func (r *recordingNotifier) Name() string { return "recorder" }

func (r *recordingNotifier) Send(ctx context.Context, alert model.OutboundAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return nil
}

func seedItem(t *testing.T, store *mockStore, name string, quantity int) *model.StockItem {
	t.Helper()
	item := &model.StockItem{
		ID:        "item-" + name,
		Name:      name,
		Quantity:  quantity,
		Status:    model.StatusApproved,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateStockItem(context.Background(), item); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return item
}

func seedRequest(t *testing.T, store *mockStore, itemID, itemName string, quantity int) *model.OutboundRequest {
	t.Helper()
	req := &model.OutboundRequest{
		ID:        "req-" + itemName + "-" + time.Now().Format("150405.000000000"),
		ItemID:    itemID,
		ItemName:  itemName,
		Quantity:  quantity,
		Notes:     "production use",
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.CreateOutboundRequest(context.Background(), req); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return req
}

func TestCreateOutbound_RecordsAndDispatches(t *testing.T) {
	store := newMockStore()
	item := seedItem(t, store, "Widget", 10)

	recorder := &recordingNotifier{}
	svc := NewReconcileService(store, notify.NewDispatcher(recorder), nil, 0)

	req, summary, err := svc.CreateOutbound(context.Background(), CreateOutboundInput{
		ItemID:    item.ID,
		Quantity:  4,
		Notes:     "warehouse transfer",
		CreatedBy: "user@example.com",
	})
	if err != nil {
		t.Fatalf("CreateOutbound: %v", err)
	}
	if req.ItemID != item.ID || req.ItemName != "Widget" {
		t.Errorf("request did not capture item reference: %+v", req)
	}
	if req.Status != model.StatusPending {
		t.Errorf("expected pending status, got %s", req.Status)
	}
	if summary.Delivered() != 1 {
		t.Errorf("expected 1 delivered channel, got %d", summary.Delivered())
	}
	if len(recorder.alerts) != 1 || recorder.alerts[0].ItemName != "Widget" {
		t.Errorf("unexpected alerts: %+v", recorder.alerts)
	}

	// Creation never deducts stock.
	fresh, _ := store.GetStockItem(context.Background(), item.ID)
	if fresh.Quantity != 10 {
		t.Errorf("expected quantity 10 after create, got %d", fresh.Quantity)
	}
}

func TestCreateOutbound_AdvisoryPrecheck(t *testing.T) {
	store := newMockStore()
	item := seedItem(t, store, "Widget", 3)
	svc := NewReconcileService(store, nil, nil, 0)

	_, _, err := svc.CreateOutbound(context.Background(), CreateOutboundInput{
		ItemID:   item.ID,
		Quantity: 4,
		Notes:    "too many",
	})

	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 3 || insufficient.Requested != 4 {
		t.Errorf("unexpected quantities: %+v", insufficient)
	}

	reqs, _ := store.ListOutboundRequests(context.Background())
	if len(reqs) != 0 {
		t.Errorf("expected no persisted request, got %d", len(reqs))
	}
}

func TestApproveOutbound_DeductsStock(t *testing.T) {
	store := newMockStore()
	item := seedItem(t, store, "Widget", 10)
	req := seedRequest(t, store, item.ID, "Widget", 4)
	svc := NewReconcileService(store, nil, nil, 0)

	approved, err := svc.ApproveOutbound(context.Background(), req.ID, "admin@example.com")
	if err != nil {
		t.Fatalf("ApproveOutbound: %v", err)
	}
	if approved.Status != model.StatusApproved {
		t.Errorf("expected approved status, got %s", approved.Status)
	}
	if approved.ApprovedBy != "admin@example.com" || approved.ApprovedAt == nil {
		t.Errorf("missing approval stamps: %+v", approved)
	}

	fresh, _ := store.GetStockItem(context.Background(), item.ID)
	if fresh.Quantity != 6 {
		t.Errorf("expected quantity 6 after approval, got %d", fresh.Quantity)
	}
}

func TestApproveOutbound_InsufficientStock(t *testing.T) {
	store := newMockStore()
	item := seedItem(t, store, "Widget", 3)
	req := seedRequest(t, store, item.ID, "Widget", 4)
	svc := NewReconcileService(store, nil, nil, 0)

	_, err := svc.ApproveOutbound(context.Background(), req.ID, "admin@example.com")

	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 3 || insufficient.Requested != 4 {
		t.Errorf("unexpected quantities: %+v", insufficient)
	}

	// Nothing mutated: request stays pending, quantity untouched.
	freshReq, _ := store.GetOutboundRequest(context.Background(), req.ID)
	if freshReq.Status != model.StatusPending {
		t.Errorf("expected request still pending, got %s", freshReq.Status)
	}
	freshItem, _ := store.GetStockItem(context.Background(), item.ID)
	if freshItem.Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", freshItem.Quantity)
	}
}

func TestApproveOutbound_NameFallback(t *testing.T) {
	store := newMockStore()
	seedItem(t, store, "Widget", 10)
	// Request created before item ids were captured, with sloppy casing.
	req := seedRequest(t, store, "", "  widget ", 2)
	svc := NewReconcileService(store, nil, nil, 0)

	if _, err := svc.ApproveOutbound(context.Background(), req.ID, "admin@example.com"); err != nil {
		t.Fatalf("ApproveOutbound via name fallback: %v", err)
	}

	fresh, _ := store.GetStockItem(context.Background(), "item-Widget")
	if fresh.Quantity != 8 {
		t.Errorf("expected quantity 8, got %d", fresh.Quantity)
	}
}

func TestApproveOutbound_ItemNotFound(t *testing.T) {
	store := newMockStore()
	seedItem(t, store, "Widget", 10)
	req := seedRequest(t, store, "", "Gadget", 2)
	svc := NewReconcileService(store, nil, nil, 0)

	_, err := svc.ApproveOutbound(context.Background(), req.ID, "admin@example.com")

	var notFound *StockItemNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected StockItemNotFoundError, got %v", err)
	}
	if notFound.SearchedName != "Gadget" {
		t.Errorf("expected searched name %q, got %q", "Gadget", notFound.SearchedName)
	}
}

func TestApproveOutbound_AlreadyProcessed(t *testing.T) {
	store := newMockStore()
	item := seedItem(t, store, "Widget", 10)
	req := seedRequest(t, store, item.ID, "Widget", 4)
	svc := NewReconcileService(store, nil, nil, 0)

	if _, err := svc.ApproveOutbound(context.Background(), req.ID, "admin@example.com"); err != nil {
		t.Fatalf("first approval: %v", err)
	}
	_, err := svc.ApproveOutbound(context.Background(), req.ID, "admin@example.com")
	if !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed, got %v", err)
	}

	// Stock deducted exactly once.
	fresh, _ := store.GetStockItem(context.Background(), item.ID)
	if fresh.Quantity != 6 {
		t.Errorf("expected quantity 6 after double approval, got %d", fresh.Quantity)
	}
}

func TestRejectOutbound_NeverTouchesStock(t *testing.T) {
	store := newMockStore()
	item := seedItem(t, store, "Widget", 10)
	req := seedRequest(t, store, item.ID, "Widget", 4)
	svc := NewReconcileService(store, nil, nil, 0)

	rejected, err := svc.RejectOutbound(context.Background(), req.ID, "admin@example.com")
	if err != nil {
		t.Fatalf("RejectOutbound: %v", err)
	}
	if rejected.Status != model.StatusRejected {
		t.Errorf("expected rejected status, got %s", rejected.Status)
	}

	fresh, _ := store.GetStockItem(context.Background(), item.ID)
	if fresh.Quantity != 10 {
		t.Errorf("expected quantity 10 after rejection, got %d", fresh.Quantity)
	}

	// Terminal states are immutable either way.
	if _, err := svc.ApproveOutbound(context.Background(), req.ID, "admin@example.com"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed approving a rejected request, got %v", err)
	}
}

func TestDeleteOutbound_NoStockRestore(t *testing.T) {
	store := newMockStore()
	item := seedItem(t, store, "Widget", 10)
	req := seedRequest(t, store, item.ID, "Widget", 4)
	svc := NewReconcileService(store, nil, nil, 0)

	if _, err := svc.ApproveOutbound(context.Background(), req.ID, "admin@example.com"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := svc.DeleteOutbound(context.Background(), req.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.GetOutboundRequest(context.Background(), req.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected request gone, got %v", err)
	}
	// Deleting an approved request does not put the stock back.
	fresh, _ := store.GetStockItem(context.Background(), item.ID)
	if fresh.Quantity != 6 {
		t.Errorf("expected quantity 6 after delete, got %d", fresh.Quantity)
	}
}

func TestApproveOutbound_ConcurrentSingleWinner(t *testing.T) {
	store := newMockStore()
	item := seedItem(t, store, "Widget", 5)
	reqA := seedRequest(t, store, item.ID, "Widget", 3)
	reqB := seedRequest(t, store, item.ID, "Widget", 3)
	svc := NewReconcileService(store, nil, nil, 0)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{reqA.ID, reqB.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.ApproveOutbound(context.Background(), id, "admin@example.com")
		}(i, id)
	}
	wg.Wait()

	var successes, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		default:
			var ise *InsufficientStockError
			if errors.As(err, &ise) {
				insufficient++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d insufficient", successes, insufficient)
	}

	fresh, _ := store.GetStockItem(context.Background(), item.ID)
	if fresh.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", fresh.Quantity)
	}
}

func TestCreateStockItem_Validation(t *testing.T) {
	svc := NewReconcileService(newMockStore(), nil, nil, 0)

	if _, err := svc.CreateStockItem(context.Background(), CreateStockItemInput{Name: "  ", Quantity: 1}); err == nil {
		t.Error("expected error for blank name")
	}
	if _, err := svc.CreateStockItem(context.Background(), CreateStockItemInput{Name: "Widget", Quantity: -1}); err == nil {
		t.Error("expected error for negative quantity")
	}

	item, err := svc.CreateStockItem(context.Background(), CreateStockItemInput{Name: " Widget ", Quantity: 0})
	if err != nil {
		t.Fatalf("CreateStockItem: %v", err)
	}
	if item.Name != "Widget" {
		t.Errorf("expected trimmed name, got %q", item.Name)
	}
	if item.Status != model.StatusPending {
		t.Errorf("expected pending status, got %s", item.Status)
	}
}

func TestStockItemTransitions(t *testing.T) {
	store := newMockStore()
	svc := NewReconcileService(store, nil, nil, 0)

	item, err := svc.CreateStockItem(context.Background(), CreateStockItemInput{Name: "Widget", Quantity: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	approved, err := svc.ApproveStockItem(context.Background(), item.ID, "admin@example.com")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.StatusApproved || approved.Quantity != 5 {
		t.Errorf("approval must flip status only: %+v", approved)
	}

	if _, err := svc.RejectStockItem(context.Background(), item.ID, "admin@example.com"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed rejecting an approved item, got %v", err)
	}

	if _, err := svc.ApproveStockItem(context.Background(), "missing", "admin@example.com"); err == nil {
		t.Error("expected error for unknown item id")
	}
}
