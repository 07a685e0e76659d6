package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"stocktrack-api/internal/cache"
	"stocktrack-api/internal/model"
	"stocktrack-api/internal/notify"
	"stocktrack-api/internal/repository"
	"stocktrack-api/pkg/uid"
)

const stockListCacheKey = "stock-items:list"

// ReconcileService owns the approval workflow: creating inbound and
// outbound records, matching outbound requests to stock, and the
// approve/reject/delete transitions. All state transitions are guarded
// compares against the expected current status; the store commits the
// approval status flip and the stock deduction together.
type ReconcileService struct {
	store      repository.Store
	dispatcher *notify.Dispatcher
	listCache  cache.Cache
	cacheTTL   time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewReconcileService creates the reconciliation service. dispatcher and
// listCache are optional.
func NewReconcileService(store repository.Store, dispatcher *notify.Dispatcher, listCache cache.Cache, cacheTTL time.Duration) *ReconcileService {
	if store == nil {
		return nil
	}
	if dispatcher == nil {
		dispatcher = notify.NewDispatcher()
	}
	return &ReconcileService{
		store:      store,
		dispatcher: dispatcher,
		listCache:  listCache,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// CreateStockItemInput is the payload for recording an inbound item.
type CreateStockItemInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Quantity    int    `json:"quantity"`
	CreatedBy   string `json:"-"`
}

// Validate checks the inbound payload.
func (in *CreateStockItemInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("name is required")
	}
	if in.Quantity < 0 {
		return errors.New("quantity must not be negative")
	}
	return nil
}

// CreateStockItem records a new inbound stock item in pending status.
func (s *ReconcileService) CreateStockItem(ctx context.Context, in CreateStockItemInput) (*model.StockItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	item := &model.StockItem{
		ID:          uid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Image:       in.Image,
		Quantity:    in.Quantity,
		Status:      model.StatusPending,
		CreatedAt:   s.now().UTC(),
		CreatedBy:   in.CreatedBy,
	}

	if err := s.store.CreateStockItem(ctx, item); err != nil {
		return nil, err
	}
	s.invalidateStockList(ctx)

	log.Printf("[ReconcileService] Stock item %s (%q, qty %d) recorded by %s",
		item.ID, item.Name, item.Quantity, item.CreatedBy)
	return item, nil
}

// GetStockItem returns a single stock item.
func (s *ReconcileService) GetStockItem(ctx context.Context, id string) (*model.StockItem, error) {
	item, err := s.store.GetStockItem(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &StockItemIDNotFoundError{ID: id}
	}
	return item, err
}

// ListStockItems returns all stock items, served from the listing cache
// when one is configured.
func (s *ReconcileService) ListStockItems(ctx context.Context) ([]model.StockItem, error) {
	if s.listCache == nil {
		return s.store.ListStockItems(ctx)
	}

	data, err := s.listCache.GetOrSet(ctx, stockListCacheKey, s.cacheTTL, func() ([]byte, error) {
		items, err := s.store.ListStockItems(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(items)
	})
	if err != nil {
		return nil, err
	}

	var items []model.StockItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ApproveStockItem flips an inbound item pending->approved. Inbound
// quantity is authoritative at creation time, so approval is a status
// flip plus audit stamps only.
func (s *ReconcileService) ApproveStockItem(ctx context.Context, id, actor string) (*model.StockItem, error) {
	err := s.store.SetStockItemStatus(ctx, id, model.StatusPending, model.StatusApproved, actor, s.now().UTC())
	if err != nil {
		return nil, s.mapStockItemErr(err, id)
	}
	s.invalidateStockList(ctx)
	log.Printf("[ReconcileService] Stock item %s approved by %s", id, actor)
	return s.store.GetStockItem(ctx, id)
}

// RejectStockItem flips an inbound item pending->rejected.
func (s *ReconcileService) RejectStockItem(ctx context.Context, id, actor string) (*model.StockItem, error) {
	err := s.store.SetStockItemStatus(ctx, id, model.StatusPending, model.StatusRejected, actor, s.now().UTC())
	if err != nil {
		return nil, s.mapStockItemErr(err, id)
	}
	s.invalidateStockList(ctx)
	log.Printf("[ReconcileService] Stock item %s rejected by %s", id, actor)
	return s.store.GetStockItem(ctx, id)
}

// DeleteStockItem removes a stock item unconditionally.
func (s *ReconcileService) DeleteStockItem(ctx context.Context, id string) error {
	err := s.store.DeleteStockItem(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &StockItemIDNotFoundError{ID: id}
	}
	if err != nil {
		return err
	}
	s.invalidateStockList(ctx)
	log.Printf("[ReconcileService] Stock item %s deleted", id)
	return nil
}

func (s *ReconcileService) mapStockItemErr(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &StockItemIDNotFoundError{ID: id}
	case errors.Is(err, repository.ErrStatusConflict):
		return ErrAlreadyProcessed
	default:
		return err
	}
}

// CreateOutboundInput is the payload for an outbound removal request.
type CreateOutboundInput struct {
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes"`
	CreatedBy string `json:"-"`
}

// Validate checks the outbound payload.
func (in *CreateOutboundInput) Validate() error {
	if in.ItemID == "" {
		return errors.New("item_id is required")
	}
	if in.Quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}
	if strings.TrimSpace(in.Notes) == "" {
		return errors.New("notes/reason is required")
	}
	return nil
}

// CreateOutbound records a pending outbound request and dispatches the
// approval alert. The request captures both the resolved item id and the
// item name at creation time; approval re-resolves against current
// stock. The precheck against available quantity is advisory only, the
// authoritative check happens at approval. Notification failures never
// fail the create.
func (s *ReconcileService) CreateOutbound(ctx context.Context, in CreateOutboundInput) (*model.OutboundRequest, model.DispatchSummary, error) {
	if err := in.Validate(); err != nil {
		return nil, model.DispatchSummary{}, err
	}

	item, err := s.store.GetStockItem(ctx, in.ItemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.DispatchSummary{}, &StockItemIDNotFoundError{ID: in.ItemID}
	}
	if err != nil {
		return nil, model.DispatchSummary{}, err
	}

	if in.Quantity > item.Quantity {
		return nil, model.DispatchSummary{}, &InsufficientStockError{
			ItemName:  item.Name,
			Available: item.Quantity,
			Requested: in.Quantity,
		}
	}

	req := &model.OutboundRequest{
		ID:        uid.New(),
		ItemID:    item.ID,
		ItemName:  item.Name,
		Quantity:  in.Quantity,
		Notes:     strings.TrimSpace(in.Notes),
		Status:    model.StatusPending,
		CreatedAt: s.now().UTC(),
		CreatedBy: in.CreatedBy,
	}

	if err := s.store.CreateOutboundRequest(ctx, req); err != nil {
		return nil, model.DispatchSummary{}, err
	}

	// The record is persisted; from here on nothing can fail the create.
	summary := s.dispatcher.Dispatch(ctx, model.OutboundAlert{
		RequestID: req.ID,
		ItemName:  req.ItemName,
		Quantity:  req.Quantity,
		Notes:     req.Notes,
		CreatedBy: req.CreatedBy,
		CreatedAt: req.CreatedAt,
	})

	log.Printf("[ReconcileService] Outbound request %s (%q, qty %d) recorded by %s: %s",
		req.ID, req.ItemName, req.Quantity, req.CreatedBy, summary.Summary())
	return req, summary, nil
}

// GetOutbound returns a single outbound request.
func (s *ReconcileService) GetOutbound(ctx context.Context, id string) (*model.OutboundRequest, error) {
	req, err := s.store.GetOutboundRequest(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &RequestNotFoundError{ID: id}
	}
	return req, err
}

// ListOutbound returns all outbound requests.
func (s *ReconcileService) ListOutbound(ctx context.Context) ([]model.OutboundRequest, error) {
	return s.store.ListOutboundRequests(ctx)
}

// ApproveOutbound approves an outbound request and deducts stock.
//
// The matched stock item is resolved fresh on every attempt: by the
// stored item id first, then by case-insensitive trimmed name equality
// against current stock for requests created before ids were captured
// or whose item was re-created since. The deduction itself is
// conditional inside the store, so a concurrent approval racing over
// the same item leaves exactly one winner; the loser gets
// InsufficientStockError without any mutation.
func (s *ReconcileService) ApproveOutbound(ctx context.Context, id, actor string) (*model.OutboundRequest, error) {
	req, err := s.store.GetOutboundRequest(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &RequestNotFoundError{ID: id}
	}
	if err != nil {
		return nil, err
	}
	if !req.Pending() {
		return nil, ErrAlreadyProcessed
	}

	item, err := s.resolveStockItem(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.store.ApproveOutbound(ctx, req.ID, item.ID, req.Quantity, actor, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrInsufficientStock):
		// Re-read for the current quantity so the caller sees both values.
		available := item.Quantity
		if fresh, ferr := s.store.GetStockItem(ctx, item.ID); ferr == nil {
			available = fresh.Quantity
		}
		return nil, &InsufficientStockError{
			ItemName:  item.Name,
			Available: available,
			Requested: req.Quantity,
		}
	case errors.Is(err, repository.ErrStatusConflict):
		return nil, ErrAlreadyProcessed
	case errors.Is(err, repository.ErrNotFound):
		return nil, &StockItemNotFoundError{SearchedName: req.ItemName}
	case err != nil:
		return nil, err
	}

	s.invalidateStockList(ctx)
	log.Printf("[ReconcileService] Outbound request %s approved by %s: %q reduced by %d",
		req.ID, actor, item.Name, req.Quantity)
	return s.store.GetOutboundRequest(ctx, req.ID)
}

// resolveStockItem matches a request to current stock: stored id first,
// name fallback second.
func (s *ReconcileService) resolveStockItem(ctx context.Context, req *model.OutboundRequest) (*model.StockItem, error) {
	if req.ItemID != "" {
		item, err := s.store.GetStockItem(ctx, req.ItemID)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	items, err := s.store.ListStockItems(ctx)
	if err != nil {
		return nil, err
	}
	item, ok := MatchStockItem(req.ItemName, items)
	if !ok {
		return nil, &StockItemNotFoundError{SearchedName: req.ItemName}
	}
	return item, nil
}

// RejectOutbound rejects an outbound request. Stock is never touched.
func (s *ReconcileService) RejectOutbound(ctx context.Context, id, actor string) (*model.OutboundRequest, error) {
	err := s.store.RejectOutbound(ctx, id, actor, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, &RequestNotFoundError{ID: id}
	case errors.Is(err, repository.ErrStatusConflict):
		return nil, ErrAlreadyProcessed
	case err != nil:
		return nil, err
	}
	log.Printf("[ReconcileService] Outbound request %s rejected by %s", id, actor)
	return s.store.GetOutboundRequest(ctx, id)
}

// DeleteOutbound removes an outbound request unconditionally, whatever
// its status. Deleting an approved request does not restore the deducted
// stock; delete is an audit-trail trim, not a reversal.
func (s *ReconcileService) DeleteOutbound(ctx context.Context, id string) error {
	err := s.store.DeleteOutboundRequest(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return &RequestNotFoundError{ID: id}
	}
	if err != nil {
		return err
	}
	log.Printf("[ReconcileService] Outbound request %s deleted", id)
	return nil
}

// Stats returns aggregate counts for the admin dashboard.
func (s *ReconcileService) Stats(ctx context.Context) (map[string]interface{}, error) {
	return s.store.Stats(ctx)
}

func (s *ReconcileService) invalidateStockList(ctx context.Context) {
	if s.listCache == nil {
		return
	}
	if err := s.listCache.Delete(ctx, stockListCacheKey); err != nil {
		log.Printf("[ReconcileService] Failed to invalidate stock list cache: %v", err)
	}
}
