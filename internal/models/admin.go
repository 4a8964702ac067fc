package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin matches the document in the "admins" collection. Password holds the
// bcrypt hash and is never serialized to JSON.
type Admin struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
