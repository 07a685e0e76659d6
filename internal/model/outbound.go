package model

import "time"

// OutboundRequest is a request to remove a quantity of a named item
// from stock. ItemID is the stable reference captured at creation time;
// ItemName is kept for display and as a legacy matching fallback when
// the referenced item no longer resolves by id.
type OutboundRequest struct {
	ID         string     `json:"id" bson:"_id"`
	ItemID     string     `json:"item_id" bson:"item_id"`
	ItemName   string     `json:"item_name" bson:"item_name"`
	Quantity   int        `json:"quantity" bson:"quantity"`
	Notes      string     `json:"notes" bson:"notes"`
	Status     Status     `json:"status" bson:"status"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	CreatedBy  string     `json:"created_by,omitempty" bson:"created_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty" bson:"approved_at,omitempty"`
	ApprovedBy string     `json:"approved_by,omitempty" bson:"approved_by,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty" bson:"rejected_at,omitempty"`
	RejectedBy string     `json:"rejected_by,omitempty" bson:"rejected_by,omitempty"`
}

// Pending reports whether the request can still be approved or rejected.
func (r *OutboundRequest) Pending() bool {
	return r.Status == StatusPending
}
