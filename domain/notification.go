package domain

import "time"

// NotificationKind names the rule that produced a notification. The kind is
// part of the derived id, so renaming a kind invalidates stored dismissals.
type NotificationKind string

const (
	KindTaskPending     NotificationKind = "task-pending"
	KindTaskDueSoon     NotificationKind = "task-due"
	KindTaskOverdue     NotificationKind = "task-overdue"
	KindMeetingUpcoming NotificationKind = "meeting"
	KindProjectDeadline NotificationKind = "project-deadline"
)

// NotificationTier orders notifications by urgency.
type NotificationTier int

const (
	TierLow    NotificationTier = 1
	TierMedium NotificationTier = 2
	TierHigh   NotificationTier = 3
)

// Notification is a single feed entry derived from the current snapshot.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Tier      NotificationTier `json:"tier"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Detail    string           `json:"detail,omitempty"`
	EventDate time.Time        `json:"eventDate"`
	Link      string           `json:"link,omitempty"`
}

// DeriveNotificationID builds the stable identity of a notification from the
// rule kind and the source entity id. The same underlying condition always
// re-derives the same id across refreshes, which is what lets dismissals
// stored by id suppress recomputed notifications. Stability of this function
// is part of the engine's public contract.
func DeriveNotificationID(kind NotificationKind, entityID string) string {
	return string(kind) + "-" + entityID
}
