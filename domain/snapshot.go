package domain

import "time"

// Snapshot is a point-in-time copy of the entity collections used for one
// computation pass. Collections that failed to load are empty and listed in
// Failed; Partial is set so consumers can surface degraded results.
type Snapshot struct {
	Projects []Project `json:"projects"`
	Tasks    []Task    `json:"tasks"`
	Meetings []Meeting `json:"meetings"`
	Budgets  []Budget  `json:"budgets"`
	Users    []User    `json:"users"`
	Areas    []Area    `json:"areas,omitempty"`

	Partial  bool      `json:"partial,omitempty"`
	Failed   []string  `json:"failed,omitempty"`
	LoadedAt time.Time `json:"loadedAt"`
}

// TasksForProject returns the tasks belonging to the given project.
func (s Snapshot) TasksForProject(projectID string) []Task {
	var out []Task
	for _, t := range s.Tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}

// UserByEmail looks up a user record, ok is false when absent.
func (s Snapshot) UserByEmail(email string) (User, bool) {
	for _, u := range s.Users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}
