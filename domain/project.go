package domain

import "time"

// ProjectStatus enumerates the lifecycle states of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

// Priority ranks projects and tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Weight returns a numeric rank for sorting, higher is more urgent.
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Project is a read-only copy of a dashboard project. A zero Deadline or
// StartDate means the field was absent upstream.
type Project struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Status             ProjectStatus `json:"status"`
	Priority           Priority      `json:"priority"`
	Progress           int           `json:"progress"`
	StartDate          time.Time     `json:"startDate"`
	Deadline           time.Time     `json:"deadline"`
	Responsible        string        `json:"responsible"`
	Participants       []string      `json:"participants,omitempty"`
	AreaID             string        `json:"areaId,omitempty"`
	TotalEstimatedCost float64       `json:"totalEstimatedCost"`
}

// Active reports whether the project still counts toward portfolio KPIs.
func (p Project) Active() bool {
	return p.Status != ProjectCompleted && p.Status != ProjectArchived
}

// Strategic reports whether the project is subject to health classification.
func (p Project) Strategic() bool {
	return p.Active() && (p.Priority == PriorityHigh || p.Priority == PriorityUrgent)
}

// Involves reports whether the given user is responsible for or participates
// in the project.
func (p Project) Involves(email string) bool {
	if email == "" {
		return false
	}
	if p.Responsible == email {
		return true
	}
	for _, participant := range p.Participants {
		if participant == email {
			return true
		}
	}
	return false
}

// Area groups projects by organizational unit.
type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
