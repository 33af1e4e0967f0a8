package insights

import (
	"sort"
	"time"

	"insights-engine/domain"
)

const (
	// roiValueMultiplier is the value-capture factor applied to the
	// estimated cost of completed projects.
	roiValueMultiplier = 1.3

	// projectDueSoonDays is the deadline window that marks an active
	// project as at risk when progress is also behind.
	projectDueSoonDays = 7

	// atRiskProgressThreshold is the progress floor below which a project
	// inside the deadline window counts as at risk.
	atRiskProgressThreshold = 75
)

// Aggregate computes the executive KPI snapshot from one entity snapshot.
// Scope is either domain.ScopeAll or a single project id; scoping filters the
// collections once, before any computation. The result is a pure function of
// (snap, scope, today): identical inputs yield identical snapshots.
func Aggregate(snap domain.Snapshot, scope string, today time.Time) domain.MetricsSnapshot {
	projects := snap.Projects
	tasks := snap.Tasks
	budgets := snap.Budgets

	scoped := scope != "" && scope != domain.ScopeAll
	if scoped {
		projects = filterProjects(projects, scope)
		tasks = filterTasks(tasks, scope)
		budgets = filterBudgets(budgets, scope)
	} else {
		scope = domain.ScopeAll
	}

	m := domain.MetricsSnapshot{
		Scope:       scope,
		GeneratedAt: today,
		Partial:     snap.Partial,
	}
	m.Financial = financialMetrics(projects, budgets)
	m.Portfolio = portfolioMetrics(projects, today)
	m.Operational = operationalMetrics(tasks, today)

	if scoped {
		m.TaskStatusCounts = statusHistogram(tasks)
		m.PriorityTasks = rankOpenTasks(tasks)
	} else {
		m.Portfolio.StrategicHealth = strategicHealth(snap, today)
	}
	return m
}

func financialMetrics(projects []domain.Project, budgets []domain.Budget) domain.FinancialMetrics {
	var f domain.FinancialMetrics
	for _, b := range budgets {
		f.TotalBudget += b.TotalValue
	}
	var completedCost float64
	for _, p := range projects {
		f.TotalProjectCost += p.TotalEstimatedCost
		if p.Status == domain.ProjectCompleted {
			completedCost += p.TotalEstimatedCost
		}
	}
	f.BudgetUtilization = clampRate(rate(f.TotalProjectCost, f.TotalBudget))
	if completedCost > 0 {
		captured := completedCost * roiValueMultiplier
		f.EstimatedROI = (captured - completedCost) / completedCost * 100
	}
	return f
}

func portfolioMetrics(projects []domain.Project, today time.Time) domain.PortfolioMetrics {
	var pf domain.PortfolioMetrics
	onTime := 0
	for _, p := range projects {
		if p.Status == domain.ProjectCompleted {
			pf.CompletedProjects++
		}
		if !p.Active() {
			continue
		}
		pf.ActiveProjects++
		if p.Deadline.IsZero() {
			onTime++
			continue
		}
		days := daysUntil(today, p.Deadline)
		if days >= 0 {
			onTime++
		}
		if days >= 0 && days <= projectDueSoonDays && p.Progress < atRiskProgressThreshold {
			pf.ProjectsAtRisk++
		}
	}
	pf.ProjectsOnTimeRate = clampRate(rate(float64(onTime), float64(pf.ActiveProjects)))
	return pf
}

func operationalMetrics(tasks []domain.Task, today time.Time) domain.OperationalMetrics {
	var op domain.OperationalMetrics
	op.TotalTasks = len(tasks)
	assignees := make(map[string]struct{})
	for _, t := range tasks {
		if t.Status == domain.TaskDone {
			op.CompletedTasks++
			continue
		}
		if !t.Deadline.IsZero() && daysUntil(today, t.Deadline) < 0 {
			op.OverdueTasks++
		}
		if t.AssignedTo != "" {
			assignees[t.AssignedTo] = struct{}{}
		}
	}
	op.TaskCompletionRate = clampRate(rate(float64(op.CompletedTasks), float64(op.TotalTasks)))
	op.ResourceUtilization = len(assignees)
	return op
}

func strategicHealth(snap domain.Snapshot, today time.Time) []domain.ProjectHealth {
	var out []domain.ProjectHealth
	for _, p := range snap.Projects {
		if !p.Strategic() {
			continue
		}
		out = append(out, domain.ProjectHealth{
			ProjectID: p.ID,
			Title:     p.Title,
			Tier:      ClassifyHealth(p, snap.TasksForProject(p.ID), today),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out
}

func statusHistogram(tasks []domain.Task) map[domain.TaskStatus]int {
	counts := make(map[domain.TaskStatus]int)
	for _, t := range tasks {
		counts[t.Status]++
	}
	return counts
}

// rankOpenTasks orders a project's open tasks by priority, then soonest
// deadline with undated tasks last, then id.
func rankOpenTasks(tasks []domain.Task) []domain.Task {
	var open []domain.Task
	for _, t := range tasks {
		if t.Open() {
			open = append(open, t)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		if wi, wj := open[i].Priority.Weight(), open[j].Priority.Weight(); wi != wj {
			return wi > wj
		}
		di, dj := open[i].Deadline, open[j].Deadline
		switch {
		case di.IsZero() && !dj.IsZero():
			return false
		case !di.IsZero() && dj.IsZero():
			return true
		case !di.Equal(dj):
			return di.Before(dj)
		}
		return open[i].ID < open[j].ID
	})
	return open
}

func filterProjects(projects []domain.Project, projectID string) []domain.Project {
	var out []domain.Project
	for _, p := range projects {
		if p.ID == projectID {
			out = append(out, p)
		}
	}
	return out
}

func filterTasks(tasks []domain.Task, projectID string) []domain.Task {
	var out []domain.Task
	for _, t := range tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}

func filterBudgets(budgets []domain.Budget, projectID string) []domain.Budget {
	var out []domain.Budget
	for _, b := range budgets {
		if b.ProjectID == projectID {
			out = append(out, b)
		}
	}
	return out
}

// rate is the divide-by-zero-safe percentage of num over den.
func rate(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den * 100
}

func clampRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
