package models

import "gorm.io/gorm"

// Friend-request lifecycle states.
const (
	FriendStatusPending  = "pending"
	FriendStatusAccepted = "accepted"
	FriendStatusDeclined = "declined"
)

// FriendRequest represents a friend request between two users. Accepting
// or declining can happen either through the API or through the signed
// action links embedded in the friend-request email.
type FriendRequest struct {
	gorm.Model
	SenderID   uint   `json:"sender_id" gorm:"index"`
	ReceiverID uint   `json:"receiver_id" gorm:"index"`
	Status     string `json:"status" gorm:"type:varchar(20);default:'pending'"`
}

// CreateFriendRequest defines the request body for sending a friend request
type CreateFriendRequest struct {
	ReceiverID uint `json:"receiver_id" validate:"required"`
}

// UpdateFriendRequest defines the request body for accepting/declining a friend request
type UpdateFriendRequest struct {
	Status string `json:"status" validate:"required,oneof=accepted declined"`
}
