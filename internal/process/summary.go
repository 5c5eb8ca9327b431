package process

import (
	"fmt"
	"time"

	"github.com/coursesync/sisu-moodle-sync/internal/groupsync"
)

// Summary is the outcome of one reconcile run
type Summary struct {
	RunType   RunType       `json:"runType"`
	StartedAt time.Time     `json:"startedAt"`
	Elapsed   time.Duration `json:"elapsed"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	// Error is set when the run could not select its courses
	Error string        `json:"error,omitempty"`
	Items []ItemSummary `json:"items"`
}

// ItemSummary is the outcome of one course
type ItemSummary struct {
	RegistryID       string                       `json:"registryId"`
	MoodleCourseID   *int64                       `json:"moodleCourseId,omitempty"`
	EnrichmentStatus EnrichmentStatus             `json:"enrichmentStatus"`
	Status           Status                       `json:"status"`
	Message          string                       `json:"message,omitempty"`
	Users            []UserSummary                `json:"users,omitempty"`
	GroupChanges     map[groupsync.ChangeType]int `json:"groupChanges,omitempty"`
}

// UserSummary is the outcome of one user that needed attention
type UserSummary struct {
	PersonIDs    []string        `json:"personIds,omitempty"`
	MoodleUserID *int64          `json:"moodleUserId,omitempty"`
	Status       UserStatus      `json:"status"`
	Message      string          `json:"message,omitempty"`
	Actions      []ActionSummary `json:"actions,omitempty"`
}

// ActionSummary is the outcome of one user action
type ActionSummary struct {
	Type    string       `json:"type"`
	Roles   []int64      `json:"roles"`
	Status  ActionStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Successful reports whether the run selected its courses and no course failed
func (s *Summary) Successful() bool {
	return s.Error == "" && s.Failed == 0
}

// String returns a one-line digest of the run
func (s *Summary) String() string {
	if s.Error != "" {
		return fmt.Sprintf("%s run failed after %s: %s", s.RunType, s.Elapsed.Round(time.Millisecond), s.Error)
	}
	return fmt.Sprintf("%s run of %d courses in %s: %d succeeded, %d failed, %d skipped",
		s.RunType, s.Total, s.Elapsed.Round(time.Millisecond), s.Succeeded, s.Failed, s.Skipped)
}

func newSummary(runType RunType, startedAt time.Time, items []*Item) *Summary {
	s := &Summary{
		RunType:   runType,
		StartedAt: startedAt,
		Total:     len(items),
		Items:     make([]ItemSummary, 0, len(items)),
	}
	for _, item := range items {
		switch item.Status {
		case StatusSuccess:
			s.Succeeded++
		case StatusSkipped, StatusLocked:
			s.Skipped++
		default:
			s.Failed++
		}
		s.Items = append(s.Items, summarizeItem(item))
	}
	return s
}

func summarizeItem(item *Item) ItemSummary {
	is := ItemSummary{
		RegistryID:       item.RegistryID(),
		MoodleCourseID:   item.Course.MoodleID,
		EnrichmentStatus: item.EnrichmentStatus,
		Status:           item.Status,
		Message:          item.Message,
	}
	if item.Groups != nil {
		is.GroupChanges = item.Groups.Counts()
	}
	for _, u := range item.Users {
		if len(u.Actions) == 0 && u.Status == UserSuccess {
			continue
		}
		us := UserSummary{
			MoodleUserID: u.MoodleUserID,
			Status:       u.Status,
			Message:      u.Message,
		}
		for _, p := range u.People {
			us.PersonIDs = append(us.PersonIDs, p.ID)
		}
		for _, a := range u.Actions {
			us.Actions = append(us.Actions, ActionSummary{
				Type:    string(a.Type),
				Roles:   a.Roles.Sorted(),
				Status:  a.Status,
				Message: a.Message,
			})
		}
		is.Users = append(is.Users, us)
	}
	return is
}
