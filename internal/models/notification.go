package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind identifies the type of event a notification was produced from.
type Kind string

const (
	KindComment       Kind = "comment"
	KindReact         Kind = "react"
	KindGroupAdd      Kind = "group_add"
	KindBlogNew       Kind = "blog_new"
	KindFriendRequest Kind = "friend_request"
	KindMessage       Kind = "message"
	KindCustom        Kind = "custom"
)

// Kinds lists every notification kind accepted by the store.
var Kinds = []Kind{KindComment, KindReact, KindGroupAdd, KindBlogNew, KindFriendRequest, KindMessage, KindCustom}

// ValidKind reports whether k is a known notification kind.
func ValidKind(k Kind) bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// maxContentLength bounds the display text stored, pushed and mailed
// with a notification.
const maxContentLength = 100

// ShortenContent truncates display text to the notification limit,
// counting runes so multi-byte text is never cut mid-character.
func ShortenContent(s string) string {
	runes := []rune(s)
	if len(runes) <= maxContentLength {
		return s
	}
	return string(runes[:maxContentLength]) + "..."
}

// Event describes something that happened in the application that may
// warrant notifying one or more users. It is built by the domain action
// at the moment the underlying fact is committed and never mutated.
type Event struct {
	Kind         Kind           `json:"kind"`
	SourceID     string         `json:"source_id"` // blog/group being acted on
	SourceName   string         `json:"source_name"`
	FromUserID   uint           `json:"from_user_id"` // actor
	FromUsername string         `json:"from_username"`
	Content      string         `json:"content"`
	Details      map[string]any `json:"details,omitempty"`
}

// Notification is the persisted, per-recipient trace of an event routed
// to the web channel (MongoDB). Email-only deliveries are not recorded.
type Notification struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Kind         Kind               `json:"kind" bson:"kind"`
	Content      string             `json:"content" bson:"content"`
	Details      map[string]any     `json:"details,omitempty" bson:"details,omitempty"`
	SourceID     string             `json:"source_id,omitempty" bson:"source_id,omitempty"`
	SourceName   string             `json:"source_name,omitempty" bson:"source_name,omitempty"`
	FromUserID   uint               `json:"from_user_id" bson:"from_user_id"`
	FromUsername string             `json:"from_username" bson:"from_username"`
	UserID       uint               `json:"user_id" bson:"user_id"` // recipient
	Seen         bool               `json:"seen" bson:"seen"`
	Read         bool               `json:"read" bson:"read"`
	CreateDate   time.Time          `json:"create_date" bson:"create_date"`
}

// NotificationFromEvent builds the record persisted for one recipient.
func NotificationFromEvent(e Event, userID uint) Notification {
	return Notification{
		Kind:         e.Kind,
		Content:      e.Content,
		Details:      e.Details,
		SourceID:     e.SourceID,
		SourceName:   e.SourceName,
		FromUserID:   e.FromUserID,
		FromUsername: e.FromUsername,
		UserID:       userID,
		CreateDate:   time.Now(),
	}
}

// FeedQuery carries the list parameters for a user's notification feed.
type FeedQuery struct {
	Kind    Kind   // optional filter, empty matches all kinds
	SortKey string // only "create_date" is honored
	Order   int    // 1 ascending, -1 descending
	Page    int
	Limit   int
}
