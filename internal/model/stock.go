package model

import "time"

// StockItem is an inbound stock record. Quantity is the authoritative
// on-hand count and never goes negative; the only path that decrements
// it is an approved outbound request.
type StockItem struct {
	ID          string     `json:"id" bson:"_id"`
	Name        string     `json:"name" bson:"name"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Image       string     `json:"image,omitempty" bson:"image,omitempty"`
	Quantity    int        `json:"quantity" bson:"quantity"`
	Status      Status     `json:"status" bson:"status"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	CreatedBy   string     `json:"created_by,omitempty" bson:"created_by,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	ApprovedBy  string     `json:"approved_by,omitempty" bson:"approved_by,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	RejectedBy  string     `json:"rejected_by,omitempty" bson:"rejected_by,omitempty"`
}
