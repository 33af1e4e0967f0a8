package insights

import (
	"time"

	"insights-engine/domain"
)

// blockedRedThreshold is the blocked-task count above which a project is red.
const blockedRedThreshold = 2

// ClassifyHealth assigns the three-tier health status of a project given its
// tasks. Severity wins: a red condition dominates any yellow one. Projects
// without a deadline are never red or yellow from the deadline clauses alone.
func ClassifyHealth(p domain.Project, tasks []domain.Task, today time.Time) domain.HealthTier {
	blocked := 0
	for _, t := range tasks {
		if t.Status == domain.TaskBlocked {
			blocked++
		}
	}

	hasDeadline := !p.Deadline.IsZero()
	days := 0
	if hasDeadline {
		days = daysUntil(today, p.Deadline)
	}

	if blocked > blockedRedThreshold || (hasDeadline && days < 0) {
		return domain.HealthRed
	}
	if blocked > 0 || (hasDeadline && days <= projectDueSoonDays && p.Progress < atRiskProgressThreshold) {
		return domain.HealthYellow
	}
	return domain.HealthGreen
}
