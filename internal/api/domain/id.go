package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

// IsValidID reports whether s is a 24 character hex ObjectID.
// All storage backends share this identifier format.
func IsValidID(s string) bool {
	return primitive.IsValidObjectID(s)
}

// NewID generates a new identifier for backends that do not assign one.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
