package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"insights-engine/domain"
)

// Tables names the per-collection tables of the dashboard's data store.
type Tables struct {
	Projects string
	Tasks    string
	Meetings string
	Budgets  string
	Users    string
	Areas    string
}

// Store reads the dashboard's entity collections from Azure Table Storage.
// All methods are read-only; the engine never writes to the source store.
type Store struct {
	projects *aztables.Client
	tasks    *aztables.Client
	meetings *aztables.Client
	budgets  *aztables.Client
	users    *aztables.Client
	areas    *aztables.Client
}

// New creates a Store from the given connection string.
func New(connStr string, tables Tables) (*Store, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Store{
		projects: svc.NewClient(tables.Projects),
		tasks:    svc.NewClient(tables.Tasks),
		meetings: svc.NewClient(tables.Meetings),
		budgets:  svc.NewClient(tables.Budgets),
		users:    svc.NewClient(tables.Users),
		areas:    svc.NewClient(tables.Areas),
	}, nil
}

type projectEntity struct {
	aztables.Entity
	Title              string  `json:"Title"`
	Status             string  `json:"Status"`
	Priority           string  `json:"Priority"`
	Progress           int     `json:"Progress"`
	StartDate          string  `json:"StartDate"`
	Deadline           string  `json:"Deadline"`
	Responsible        string  `json:"Responsible"`
	Participants       string  `json:"Participants"`
	AreaID             string  `json:"AreaId"`
	TotalEstimatedCost float64 `json:"TotalEstimatedCost"`
}

type taskEntity struct {
	aztables.Entity
	ProjectID   string `json:"ProjectId"`
	Title       string `json:"Title"`
	Status      string `json:"Status"`
	Priority    string `json:"Priority"`
	AssignedTo  string `json:"AssignedTo"`
	Deadline    string `json:"Deadline"`
	CreatedDate string `json:"CreatedDate"`
}

type meetingEntity struct {
	aztables.Entity
	ProjectID string `json:"ProjectId"`
	Title     string `json:"Title"`
	Date      string `json:"Date"`
	Attendees string `json:"Attendees"`
}

type budgetEntity struct {
	aztables.Entity
	ProjectID  string  `json:"ProjectId"`
	TotalValue float64 `json:"TotalValue"`
}

type userEntity struct {
	aztables.Entity
	Email    string `json:"Email"`
	Name     string `json:"Name"`
	Position string `json:"Position"`
}

type areaEntity struct {
	aztables.Entity
	Name string `json:"Name"`
}

func listEntities(ctx context.Context, client *aztables.Client, each func(raw []byte) error) error {
	pager := client.NewListEntitiesPager(nil)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, e := range resp.Entities {
			if err := each(e); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListProjects retrieves every project in the store.
func (s *Store) ListProjects(ctx context.Context) ([]domain.Project, error) {
	projects := []domain.Project{}
	err := listEntities(ctx, s.projects, func(raw []byte) error {
		var ent projectEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		projects = append(projects, domain.Project{
			ID:                 ent.RowKey,
			Title:              ent.Title,
			Status:             domain.ProjectStatus(ent.Status),
			Priority:           domain.Priority(ent.Priority),
			Progress:           ent.Progress,
			StartDate:          parseDate(ent.StartDate),
			Deadline:           parseDate(ent.Deadline),
			Responsible:        ent.Responsible,
			Participants:       decodeStringList(ent.Participants),
			AreaID:             ent.AreaID,
			TotalEstimatedCost: ent.TotalEstimatedCost,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return projects, nil
}

// ListTasks retrieves every task in the store.
func (s *Store) ListTasks(ctx context.Context) ([]domain.Task, error) {
	tasks := []domain.Task{}
	err := listEntities(ctx, s.tasks, func(raw []byte) error {
		var ent taskEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		tasks = append(tasks, domain.Task{
			ID:          ent.RowKey,
			ProjectID:   ent.ProjectID,
			Title:       ent.Title,
			Status:      domain.TaskStatus(ent.Status),
			Priority:    domain.Priority(ent.Priority),
			AssignedTo:  ent.AssignedTo,
			Deadline:    parseDate(ent.Deadline),
			CreatedDate: parseDate(ent.CreatedDate),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListMeetings retrieves every meeting in the store.
func (s *Store) ListMeetings(ctx context.Context) ([]domain.Meeting, error) {
	meetings := []domain.Meeting{}
	err := listEntities(ctx, s.meetings, func(raw []byte) error {
		var ent meetingEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		meetings = append(meetings, domain.Meeting{
			ID:        ent.RowKey,
			ProjectID: ent.ProjectID,
			Title:     ent.Title,
			Date:      parseDate(ent.Date),
			Attendees: decodeStringList(ent.Attendees),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// ListBudgets retrieves every budget entry in the store.
func (s *Store) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	budgets := []domain.Budget{}
	err := listEntities(ctx, s.budgets, func(raw []byte) error {
		var ent budgetEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		budgets = append(budgets, domain.Budget{
			ID:         ent.RowKey,
			ProjectID:  ent.ProjectID,
			TotalValue: ent.TotalValue,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

// ListUsers retrieves every user account in the store.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	err := listEntities(ctx, s.users, func(raw []byte) error {
		var ent userEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		users = append(users, domain.User{
			ID:       ent.RowKey,
			Email:    ent.Email,
			Name:     ent.Name,
			Position: ent.Position,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListAreas retrieves every organizational area in the store.
func (s *Store) ListAreas(ctx context.Context) ([]domain.Area, error) {
	areas := []domain.Area{}
	err := listEntities(ctx, s.areas, func(raw []byte) error {
		var ent areaEntity
		if err := json.Unmarshal(raw, &ent); err != nil {
			return err
		}
		areas = append(areas, domain.Area{ID: ent.RowKey, Name: ent.Name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return areas, nil
}

// parseDate accepts the date formats seen in the source tables. Records with
// unparsable or empty dates get the zero time, which rules treat as "no date".
func parseDate(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t
	}
	return time.Time{}
}

// decodeStringList parses an array-valued column stored as a JSON string.
func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
