package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report statuses. A report starts as pending and is moved through the
// lifecycle by an admin; no other values are ever stored.
const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
	StatusResolved = "resolved"
)

// Report is the central document in the "reports" collection. ReceiptID is
// the public-facing handle and carries a unique index (see database.EnsureIndexes).
type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReceiptID   string             `bson:"receiptId" json:"receiptId"`
	BusNumber   string             `bson:"busNumber" json:"busNumber"`
	RouteNumber string             `bson:"routeNumber" json:"routeNumber"`
	BusName     string             `bson:"busName,omitempty" json:"busName,omitempty"`
	Location    string             `bson:"location" json:"location"`
	Description string             `bson:"description" json:"description"`
	Images      []string           `bson:"images" json:"images"`
	Videos      []string           `bson:"videos" json:"videos"`
	ReportedAt  time.Time          `bson:"reportedAt" json:"reportedAt"`
	Status      string             `bson:"status" json:"status"`
}

// ValidStatus reports whether s is one of the enumerated report statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusReviewed, StatusResolved:
		return true
	}
	return false
}
