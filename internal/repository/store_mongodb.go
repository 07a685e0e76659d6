package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"stocktrack-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store using MongoDB.
//
// MongoDB multi-document transactions require a replica set, which the
// deployments this backend targets do not guarantee. ApproveOutbound
// therefore uses two conditional single-document updates with a
// compensating revert: the status flip only succeeds while the request
// is pending, the deduction only succeeds while quantity covers the
// request, and a failed deduction rolls the status flip back.
type MongoStore struct {
	client   *mongo.Client
	items    *mongo.Collection
	requests *mongo.Collection
	users    *mongo.Collection
}

// NewMongoStore creates a new MongoDB store.
func NewMongoStore(uri, database string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		items:    db.Collection("stock_items"),
		requests: db.Collection("outbound_requests"),
		users:    db.Collection("users"),
	}

	if err := s.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Printf("[MongoStore] Initialized with database: %s", database)
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return err
	}
	_, err = s.requests.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	})
	if err != nil {
		return err
	}
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// CreateStockItem inserts a new stock item.
func (s *MongoStore) CreateStockItem(ctx context.Context, item *model.StockItem) error {
	if _, err := s.items.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("failed to insert stock item: %w", err)
	}
	return nil
}

// GetStockItem retrieves a stock item by id.
func (s *MongoStore) GetStockItem(ctx context.Context, id string) (*model.StockItem, error) {
	var item model.StockItem
	err := s.items.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock item: %w", err)
	}
	return &item, nil
}

// ListStockItems returns all stock items ordered by creation time.
func (s *MongoStore) ListStockItems(ctx context.Context) ([]model.StockItem, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.items.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock items: %w", err)
	}
	defer cursor.Close(ctx)

	var items []model.StockItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("failed to decode stock items: %w", err)
	}
	return items, nil
}

// SetStockItemStatus flips a stock item's status with a guard on the
// expected current status.
func (s *MongoStore) SetStockItemStatus(ctx context.Context, id string, from, to model.Status, actor string, at time.Time) error {
	set := bson.M{"status": to}
	switch to {
	case model.StatusApproved:
		set["approved_at"] = at
		set["approved_by"] = actor
	case model.StatusRejected:
		set["rejected_at"] = at
		set["rejected_by"] = actor
	default:
		return fmt.Errorf("unsupported status transition to %q", to)
	}

	result, err := s.items.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update stock item status: %w", err)
	}
	if result.MatchedCount == 0 {
		n, err := s.items.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to check stock item: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// DeleteStockItem removes a stock item unconditionally.
func (s *MongoStore) DeleteStockItem(ctx context.Context, id string) error {
	result, err := s.items.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete stock item: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateOutboundRequest inserts a new outbound request.
func (s *MongoStore) CreateOutboundRequest(ctx context.Context, req *model.OutboundRequest) error {
	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		return fmt.Errorf("failed to insert outbound request: %w", err)
	}
	return nil
}

// GetOutboundRequest retrieves an outbound request by id.
func (s *MongoStore) GetOutboundRequest(ctx context.Context, id string) (*model.OutboundRequest, error) {
	var req model.OutboundRequest
	err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbound request: %w", err)
	}
	return &req, nil
}

// ListOutboundRequests returns all outbound requests ordered by creation time.
func (s *MongoStore) ListOutboundRequests(ctx context.Context) ([]model.OutboundRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.requests.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbound requests: %w", err)
	}
	defer cursor.Close(ctx)

	var reqs []model.OutboundRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, fmt.Errorf("failed to decode outbound requests: %w", err)
	}
	return reqs, nil
}

// DeleteOutboundRequest removes an outbound request unconditionally.
func (s *MongoStore) DeleteOutboundRequest(ctx context.Context, id string) error {
	result, err := s.requests.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete outbound request: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveOutbound flips the request pending->approved, then conditionally
// deducts stock. A failed deduction reverts the status flip so the
// request stays approvable once the conflict clears.
func (s *MongoStore) ApproveOutbound(ctx context.Context, requestID, itemID string, quantity int, actor string, at time.Time) error {
	result, err := s.requests.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": model.StatusPending},
		bson.M{"$set": bson.M{
			"status":      model.StatusApproved,
			"approved_at": at,
			"approved_by": actor,
		}})
	if err != nil {
		return fmt.Errorf("failed to update outbound request: %w", err)
	}
	if result.MatchedCount == 0 {
		n, err := s.requests.CountDocuments(ctx, bson.M{"_id": requestID})
		if err != nil {
			return fmt.Errorf("failed to check outbound request: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStatusConflict
	}

	deduct, err := s.items.UpdateOne(ctx,
		bson.M{"_id": itemID, "quantity": bson.M{"$gte": quantity}},
		bson.M{"$inc": bson.M{"quantity": -quantity}})
	if err == nil && deduct.MatchedCount > 0 {
		return nil
	}

	// Deduction failed; revert the status flip before reporting.
	if _, revertErr := s.requests.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": model.StatusApproved},
		bson.M{"$set": bson.M{"status": model.StatusPending},
			"$unset": bson.M{"approved_at": "", "approved_by": ""}}); revertErr != nil {
		log.Printf("[MongoStore] Failed to revert approval of request %s: %v", requestID, revertErr)
	}

	if err != nil {
		return fmt.Errorf("failed to deduct stock: %w", err)
	}
	n, cerr := s.items.CountDocuments(ctx, bson.M{"_id": itemID})
	if cerr != nil {
		return fmt.Errorf("failed to check stock item: %w", cerr)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

// RejectOutbound flips the request pending->rejected. No stock mutation.
func (s *MongoStore) RejectOutbound(ctx context.Context, requestID, actor string, at time.Time) error {
	result, err := s.requests.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": model.StatusPending},
		bson.M{"$set": bson.M{
			"status":      model.StatusRejected,
			"rejected_at": at,
			"rejected_by": actor,
		}})
	if err != nil {
		return fmt.Errorf("failed to reject outbound request: %w", err)
	}
	if result.MatchedCount == 0 {
		n, err := s.requests.CountDocuments(ctx, bson.M{"_id": requestID})
		if err != nil {
			return fmt.Errorf("failed to check outbound request: %w", err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStatusConflict
	}
	return nil
}

// CreateUser inserts a new user record.
func (s *MongoStore) CreateUser(ctx context.Context, u *model.User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByEmail retrieves a user by email address.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns all user records.
func (s *MongoStore) ListUsers(ctx context.Context) ([]model.User, error) {
	cursor, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// Stats returns aggregate counts for the admin dashboard.
func (s *MongoStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	totalItems, err := s.items.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats["stock_items"] = totalItems

	cursor, err := s.items.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": nil, "units": bson.M{"$sum": "$quantity"}}}},
	})
	if err != nil {
		return nil, err
	}
	var agg []bson.M
	if err := cursor.All(ctx, &agg); err != nil {
		return nil, err
	}
	if len(agg) > 0 {
		stats["stock_units"] = agg[0]["units"]
	} else {
		stats["stock_units"] = 0
	}

	totalRequests, err := s.requests.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats["outbound_requests"] = totalRequests

	pending, err := s.requests.CountDocuments(ctx, bson.M{"status": model.StatusPending})
	if err != nil {
		return nil, err
	}
	stats["pending_requests"] = pending

	return stats, nil
}

// Close disconnects the MongoDB client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store
var _ Store = (*MongoStore)(nil)
