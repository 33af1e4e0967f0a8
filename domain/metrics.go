package domain

import "time"

// ScopeAll aggregates across every project instead of a single one.
const ScopeAll = "all"

// HealthTier is the risk classification of a strategic project.
type HealthTier string

const (
	HealthGreen  HealthTier = "green"
	HealthYellow HealthTier = "yellow"
	HealthRed    HealthTier = "red"
)

// ProjectHealth pairs a strategic project with its classified tier.
type ProjectHealth struct {
	ProjectID string     `json:"projectId"`
	Title     string     `json:"title"`
	Tier      HealthTier `json:"tier"`
}

// FinancialMetrics aggregates budget figures. Rates are percentages and are
// 0, never NaN, when their denominator is 0.
type FinancialMetrics struct {
	TotalBudget       float64 `json:"totalBudget"`
	TotalProjectCost  float64 `json:"totalProjectCost"`
	BudgetUtilization float64 `json:"budgetUtilization"`
	EstimatedROI      float64 `json:"estimatedRoi"`
}

// PortfolioMetrics aggregates project-level figures.
type PortfolioMetrics struct {
	ActiveProjects     int             `json:"activeProjects"`
	CompletedProjects  int             `json:"completedProjects"`
	ProjectsOnTimeRate float64         `json:"projectsOnTimeRate"`
	ProjectsAtRisk     int             `json:"projectsAtRisk"`
	StrategicHealth    []ProjectHealth `json:"strategicHealth,omitempty"`
}

// OperationalMetrics aggregates task-level figures.
type OperationalMetrics struct {
	TotalTasks          int     `json:"totalTasks"`
	CompletedTasks      int     `json:"completedTasks"`
	TaskCompletionRate  float64 `json:"taskCompletionRate"`
	OverdueTasks        int     `json:"overdueTasks"`
	ResourceUtilization int     `json:"resourceUtilization"`
}

// MetricsSnapshot is the executive KPI view computed from one Snapshot and a
// scope. It is rebuilt wholesale on every refresh and never mutated.
type MetricsSnapshot struct {
	Scope       string    `json:"scope"`
	GeneratedAt time.Time `json:"generatedAt"`
	Partial     bool      `json:"partial,omitempty"`

	Financial   FinancialMetrics   `json:"financial"`
	Portfolio   PortfolioMetrics   `json:"portfolio"`
	Operational OperationalMetrics `json:"operational"`

	// Populated only when Scope is a single project.
	TaskStatusCounts map[TaskStatus]int `json:"taskStatusCounts,omitempty"`
	PriorityTasks    []Task             `json:"priorityTasks,omitempty"`
}
