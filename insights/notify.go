package insights

import (
	"fmt"
	"sort"
	"time"

	"insights-engine/domain"
)

const (
	// taskDueSoonDays is the deadline window for due-soon task alerts.
	taskDueSoonDays = 3
	// meetingUpcomingDays is the window for upcoming-meeting alerts.
	meetingUpcomingDays = 2
	// projectUrgentDays is the deadline window that raises a project
	// alert from medium to high.
	projectUrgentDays = 3
)

// Generate derives the notification feed for one user from the snapshot.
// It is a pure function of its arguments: the same snapshot, user, dismissal
// set and date always produce the same list, with the same ids, in the same
// order. Dismissed ids are removed before sorting; ordering is urgency tier
// descending, then event date ascending, then id.
func Generate(snap domain.Snapshot, userEmail string, dismissed map[string]struct{}, today time.Time) []domain.Notification {
	var list []domain.Notification

	for _, t := range snap.Tasks {
		if t.AssignedTo != userEmail || !t.Open() {
			continue
		}
		if n, ok := taskNotification(t, today); ok {
			list = append(list, n)
		}
	}

	for _, m := range snap.Meetings {
		if m.Date.IsZero() || !m.HasAttendee(userEmail) {
			continue
		}
		days := daysUntil(today, m.Date)
		if days < 0 || days > meetingUpcomingDays {
			continue
		}
		list = append(list, domain.Notification{
			ID:        domain.DeriveNotificationID(domain.KindMeetingUpcoming, m.ID),
			Kind:      domain.KindMeetingUpcoming,
			Tier:      domain.TierMedium,
			Title:     "Reunião próxima",
			Message:   meetingMessage(m.Title, days),
			Detail:    fmt.Sprintf("Data: %s", m.Date.Format("02/01/2006")),
			EventDate: m.Date,
			Link:      "/meetings/" + m.ID,
		})
	}

	for _, p := range snap.Projects {
		if p.Status == domain.ProjectCompleted || p.Deadline.IsZero() || !p.Involves(userEmail) {
			continue
		}
		days := daysUntil(today, p.Deadline)
		if days < 0 || days > projectDueSoonDays {
			continue
		}
		tier := domain.TierMedium
		if days <= projectUrgentDays {
			tier = domain.TierHigh
		}
		list = append(list, domain.Notification{
			ID:        domain.DeriveNotificationID(domain.KindProjectDeadline, p.ID),
			Kind:      domain.KindProjectDeadline,
			Tier:      tier,
			Title:     "Prazo de projeto se aproximando",
			Message:   projectMessage(p.Title, days),
			Detail:    fmt.Sprintf("Prazo: %s", p.Deadline.Format("02/01/2006")),
			EventDate: p.Deadline,
			Link:      "/projects/" + p.ID,
		})
	}

	if len(dismissed) > 0 {
		kept := list[:0]
		for _, n := range list {
			if _, ok := dismissed[n.ID]; !ok {
				kept = append(kept, n)
			}
		}
		list = kept
	}

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Tier != list[j].Tier {
			return list[i].Tier > list[j].Tier
		}
		if !list[i].EventDate.Equal(list[j].EventDate) {
			return list[i].EventDate.Before(list[j].EventDate)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// taskNotification emits at most one notification per task, most urgent
// condition first: overdue beats due-soon beats pending. A task with no
// deadline can only ever be pending.
func taskNotification(t domain.Task, today time.Time) (domain.Notification, bool) {
	if !t.Deadline.IsZero() {
		days := daysUntil(today, t.Deadline)
		if days < 0 {
			return domain.Notification{
				ID:        domain.DeriveNotificationID(domain.KindTaskOverdue, t.ID),
				Kind:      domain.KindTaskOverdue,
				Tier:      domain.TierHigh,
				Title:     "Tarefa atrasada",
				Message:   fmt.Sprintf("A tarefa %q está atrasada há %s", t.Title, diasLabel(-days)),
				Detail:    fmt.Sprintf("Prazo: %s", t.Deadline.Format("02/01/2006")),
				EventDate: t.Deadline,
				Link:      "/tasks/" + t.ID,
			}, true
		}
		if days <= taskDueSoonDays {
			tier := domain.TierMedium
			if days <= 1 {
				tier = domain.TierHigh
			}
			return domain.Notification{
				ID:        domain.DeriveNotificationID(domain.KindTaskDueSoon, t.ID),
				Kind:      domain.KindTaskDueSoon,
				Tier:      tier,
				Title:     "Tarefa vence em breve",
				Message:   dueMessage(t.Title, days),
				Detail:    fmt.Sprintf("Prazo: %s", t.Deadline.Format("02/01/2006")),
				EventDate: t.Deadline,
				Link:      "/tasks/" + t.ID,
			}, true
		}
	}
	if t.Status == domain.TaskPending {
		event := t.Deadline
		if event.IsZero() {
			event = t.CreatedDate
		}
		return domain.Notification{
			ID:        domain.DeriveNotificationID(domain.KindTaskPending, t.ID),
			Kind:      domain.KindTaskPending,
			Tier:      domain.TierMedium,
			Title:     "Tarefa pendente",
			Message:   fmt.Sprintf("A tarefa %q está pendente", t.Title),
			EventDate: event,
			Link:      "/tasks/" + t.ID,
		}, true
	}
	return domain.Notification{}, false
}

func dueMessage(title string, days int) string {
	switch days {
	case 0:
		return fmt.Sprintf("A tarefa %q vence hoje", title)
	case 1:
		return fmt.Sprintf("A tarefa %q vence amanhã", title)
	default:
		return fmt.Sprintf("A tarefa %q vence em %d dias", title, days)
	}
}

func meetingMessage(title string, days int) string {
	switch days {
	case 0:
		return fmt.Sprintf("A reunião %q acontece hoje", title)
	case 1:
		return fmt.Sprintf("A reunião %q acontece amanhã", title)
	default:
		return fmt.Sprintf("A reunião %q acontece em %d dias", title, days)
	}
}

func projectMessage(title string, days int) string {
	switch days {
	case 0:
		return fmt.Sprintf("O projeto %q vence hoje", title)
	case 1:
		return fmt.Sprintf("O projeto %q vence amanhã", title)
	default:
		return fmt.Sprintf("O prazo do projeto %q termina em %d dias", title, days)
	}
}

func diasLabel(n int) string {
	if n == 1 {
		return "1 dia"
	}
	return fmt.Sprintf("%d dias", n)
}
