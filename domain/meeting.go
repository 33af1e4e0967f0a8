package domain

import "time"

// Meeting is a read-only copy of a scheduled project meeting.
type Meeting struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Title     string    `json:"title"`
	Date      time.Time `json:"date"`
	Attendees []string  `json:"attendees,omitempty"`
}

// HasAttendee reports whether the given user is invited.
func (m Meeting) HasAttendee(email string) bool {
	if email == "" {
		return false
	}
	for _, a := range m.Attendees {
		if a == email {
			return true
		}
	}
	return false
}

// Budget is a read-only copy of a project budget entry.
type Budget struct {
	ID         string  `json:"id"`
	ProjectID  string  `json:"projectId"`
	TotalValue float64 `json:"totalValue"`
}

// User identifies a dashboard account.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Position string `json:"position,omitempty"`
}
