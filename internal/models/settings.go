package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Delivery channels a notification category can be routed to.
const (
	ChannelWeb   = "web"
	ChannelEmail = "email"
)

// Category names one per-user preference slot. Each notification kind
// maps to exactly one category via the event catalog.
type Category string

const (
	CategoryComment Category = "comment_settings"
	CategoryReact   Category = "react_settings"
	CategoryGroup   Category = "group_settings"
	CategoryBlog    Category = "blog_settings"
	CategoryFriend  Category = "friend_settings"
	CategoryCustom  Category = "custom_settings"
	CategoryMessage Category = "message_settings"
)

// Categories lists every preference category a settings record carries.
var Categories = []Category{
	CategoryComment, CategoryReact, CategoryGroup, CategoryBlog,
	CategoryFriend, CategoryCustom, CategoryMessage,
}

// Settings is a user's per-category notification channel preferences
// (MongoDB). Every category key is always present; a missing record for
// a user is materialized with defaults on first read.
type Settings struct {
	ID              primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	UserID          uint               `json:"-" bson:"user_id"`
	CommentSettings []string           `json:"comment_settings" bson:"comment_settings"`
	ReactSettings   []string           `json:"react_settings" bson:"react_settings"`
	GroupSettings   []string           `json:"group_settings" bson:"group_settings"`
	BlogSettings    []string           `json:"blog_settings" bson:"blog_settings"`
	FriendSettings  []string           `json:"friend_settings" bson:"friend_settings"`
	CustomSettings  []string           `json:"custom_settings" bson:"custom_settings"`
	// Direct chat is already delivered live by its own path, so the
	// message category only ever controls the email fallback.
	MessageSettings []string  `json:"message_settings" bson:"message_settings"`
	CreateDate      time.Time `json:"-" bson:"create_date"`
}

// DefaultSettings returns the record materialized for a user that has
// never saved preferences: every category opted into both channels,
// except messages which are email-only by construction.
func DefaultSettings(userID uint) Settings {
	both := func() []string { return []string{ChannelWeb, ChannelEmail} }
	return Settings{
		UserID:          userID,
		CommentSettings: both(),
		ReactSettings:   both(),
		GroupSettings:   both(),
		BlogSettings:    both(),
		FriendSettings:  both(),
		CustomSettings:  both(),
		MessageSettings: []string{ChannelEmail},
		CreateDate:      time.Now(),
	}
}

// Channels returns the channel set for one category.
func (s Settings) Channels(c Category) []string {
	switch c {
	case CategoryComment:
		return s.CommentSettings
	case CategoryReact:
		return s.ReactSettings
	case CategoryGroup:
		return s.GroupSettings
	case CategoryBlog:
		return s.BlogSettings
	case CategoryFriend:
		return s.FriendSettings
	case CategoryMessage:
		return s.MessageSettings
	default:
		return s.CustomSettings
	}
}

// HasChannel reports whether the category's channel set contains ch.
func (s Settings) HasChannel(c Category, ch string) bool {
	for _, v := range s.Channels(c) {
		if v == ch {
			return true
		}
	}
	return false
}

// UpdateSettingsRequest is the settings update payload. Channel sets may
// be empty (explicit opt-out); absent categories are left untouched.
type UpdateSettingsRequest struct {
	CommentSettings []string `json:"comment_settings" validate:"omitempty,dive,oneof=web email"`
	ReactSettings   []string `json:"react_settings" validate:"omitempty,dive,oneof=web email"`
	GroupSettings   []string `json:"group_settings" validate:"omitempty,dive,oneof=web email"`
	BlogSettings    []string `json:"blog_settings" validate:"omitempty,dive,oneof=web email"`
	FriendSettings  []string `json:"friend_settings" validate:"omitempty,dive,oneof=web email"`
	CustomSettings  []string `json:"custom_settings" validate:"omitempty,dive,oneof=web email"`
	MessageSettings []string `json:"message_settings" validate:"omitempty,dive,oneof=email"`
}
