package notify

import "errors"

// Failure taxonomy for the fan-out core. Persistence-side failures abort
// the whole fan-out call; delivery-side failures stay local to a single
// recipient/channel and are only logged.
var (
	// ErrStoreUnavailable means the preference or notification
	// persistence could not be reached at all.
	ErrStoreUnavailable = errors.New("notification store unavailable")

	// ErrPersistenceFailed means the notification batch write was
	// rejected; no partial record set is left behind.
	ErrPersistenceFailed = errors.New("notification persistence failed")

	// ErrDeliveryFailed means a live push or email send failed for one
	// recipient. It never rolls back other recipients or stored records.
	ErrDeliveryFailed = errors.New("notification delivery failed")

	// ErrRecipientNotFound means a recipient no longer exists; that
	// recipient is skipped, the batch continues.
	ErrRecipientNotFound = errors.New("notification recipient not found")
)
