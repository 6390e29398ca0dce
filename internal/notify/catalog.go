package notify

import "github.com/quillhive/backend/internal/models"

// SendGrid dynamic template identifiers, one per notification kind.
const (
	TemplateBlogPublished  = "d-8f21b7a4c6d94f02a1e35790bd6412ce"
	TemplateNewComment     = "d-3a9cd0f1b2e6478a9c54e8d17f30ab64"
	TemplateNewReaction    = "d-5e74c2a8d1f043b6982a06c35de791fb"
	TemplateAddedToGroup   = "d-914f6b3e0a7c4d2583cbd1a96e480f72"
	TemplateFriendRequest  = "d-c07d25e8b49f41a3b6810f52ea9d3c48"
	TemplatePrivateMessage = "d-6b38a1d94e2c40f7a5d90c81f273be15"
)

// KindInfo describes how one notification kind is routed and rendered:
// which preference category governs it, which email template renders it,
// and whether its email deliveries are batched as a broadcast.
type KindInfo struct {
	Category   models.Category
	TemplateID string
	Broadcast  bool
}

// catalog is the single source of truth consulted by both the routing
// policy and the email channel, so the two can never drift apart.
var catalog = map[models.Kind]KindInfo{
	models.KindComment:       {Category: models.CategoryComment, TemplateID: TemplateNewComment},
	models.KindReact:         {Category: models.CategoryReact, TemplateID: TemplateNewReaction},
	models.KindGroupAdd:      {Category: models.CategoryGroup, TemplateID: TemplateAddedToGroup},
	models.KindBlogNew:       {Category: models.CategoryBlog, TemplateID: TemplateBlogPublished, Broadcast: true},
	models.KindFriendRequest: {Category: models.CategoryFriend, TemplateID: TemplateFriendRequest},
	// Direct chat is delivered live by its own transport; this entry only
	// governs the email fallback, and message preferences are email-only.
	models.KindMessage: {Category: models.CategoryMessage, TemplateID: TemplatePrivateMessage},
	models.KindCustom:  {Category: models.CategoryCustom, TemplateID: TemplatePrivateMessage},
}

// CatalogLookup resolves a kind to its routing/rendering entry.
// Unrecognized kinds fall back to the custom entry.
func CatalogLookup(kind models.Kind) KindInfo {
	if info, ok := catalog[kind]; ok {
		return info
	}
	return catalog[models.KindCustom]
}
