// Package process reconciles registry courses with their Moodle courses.
// Every run enriches each course with registry and Moodle state, decides one
// action per course and applies the enrolment changes of synchronized courses.
package process

import (
	"errors"

	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/enrollment"
	"github.com/coursesync/sisu-moodle-sync/internal/groupsync"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
)

// ErrAlreadyCompleted is returned when a completed user item or action is completed again
var ErrAlreadyCompleted = errors.New("already completed")

// EnrichmentStatus is the outcome of gathering the state of one course
type EnrichmentStatus string

// Enrichment statuses
const (
	EnrichmentInProgress             EnrichmentStatus = "in_progress"
	EnrichmentSuccess                EnrichmentStatus = "success"
	EnrichmentError                  EnrichmentStatus = "error"
	EnrichmentLocked                 EnrichmentStatus = "locked"
	EnrichmentCourseEnded            EnrichmentStatus = "course_ended"
	EnrichmentCourseNotPublic        EnrichmentStatus = "course_not_public"
	EnrichmentMoodleCourseNotFound   EnrichmentStatus = "moodle_course_not_found"
	EnrichmentRegistryCourseNotFound EnrichmentStatus = "registry_course_not_found"
	// EnrichmentImportInProgress marks a course whose Moodle course is still being created
	EnrichmentImportInProgress EnrichmentStatus = "import_in_progress"
)

// Status is the processing outcome of one course
type Status string

// Processing statuses
const (
	StatusInProgress         Status = "in_progress"
	StatusSuccess            Status = "success"
	StatusSkipped            Status = "skipped"
	StatusError              Status = "error"
	StatusLocked             Status = "locked"
	StatusEnrollmentFailures Status = "enrollment_failures"
)

// UserStatus is the outcome for one user of a course
type UserStatus string

// User statuses
const (
	UserInProgress        UserStatus = "in_progress"
	UserSuccess           UserStatus = "success"
	UserUsernameNotFound  UserStatus = "username_not_found"
	UserMoodleUserMissing UserStatus = "moodle_user_not_found"
	UserError             UserStatus = "error"
)

// ActionStatus is the outcome of one user action. The zero value is pending.
type ActionStatus string

// Action statuses
const (
	ActionPending ActionStatus = ""
	ActionSuccess ActionStatus = "success"
	ActionError   ActionStatus = "error"
)

// PersonKind tells how a person takes part in a course
type PersonKind string

// Person kinds
const (
	KindStudent PersonKind = "student"
	KindTeacher PersonKind = "teacher"
)

// Person is one registry participant of a course
type Person struct {
	ID   string     `json:"id"`
	Kind PersonKind `json:"kind"`
	// Enrolled is set for students with a confirmed enrolment
	Enrolled bool `json:"enrolled,omitempty"`
}

// UserAction is one enrolment mutation for one Moodle user. Its status is
// written once.
type UserAction struct {
	Type         enrollment.ActionType `json:"type"`
	Roles        enrollment.RoleSet    `json:"-"`
	MoodleUserID int64                 `json:"moodleUserId"`
	Status       ActionStatus          `json:"status,omitempty"`
	Message      string                `json:"message,omitempty"`
}

// Complete records the outcome of the action
func (a *UserAction) Complete(status ActionStatus, message string) error {
	if a.Status != ActionPending {
		return ErrAlreadyCompleted
	}
	a.Status = status
	a.Message = message
	return nil
}

// UserItem is one Moodle user of a course, possibly backed by more than one
// registry person when several resolve to the same account
type UserItem struct {
	People []Person `json:"people,omitempty"`
	// MoodleUserID is nil when the account could not be resolved
	MoodleUserID *int64 `json:"moodleUserId,omitempty"`
	// Enrolled is false when the user has no enrolment on the Moodle course
	Enrolled bool               `json:"enrolled"`
	Roles    enrollment.RoleSet `json:"-"`
	Visible  bool               `json:"visible"`
	Actions  []*UserAction      `json:"actions,omitempty"`
	Status   UserStatus         `json:"status"`
	Message  string             `json:"message,omitempty"`
}

func newUserItem(people ...Person) *UserItem {
	return &UserItem{People: people, Status: UserInProgress}
}

// Complete records the final status of the user. A user item is completed once.
func (u *UserItem) Complete(status UserStatus, message string) error {
	if u.Status != UserInProgress {
		return ErrAlreadyCompleted
	}
	u.Status = status
	u.Message = message
	return nil
}

// IsStudent reports whether any person of the user is an enrolled student
func (u *UserItem) IsStudent() bool {
	for _, p := range u.People {
		if p.Kind == KindStudent && p.Enrolled {
			return true
		}
	}
	return false
}

// IsTeacher reports whether any person of the user teaches the course
func (u *UserItem) IsTeacher() bool {
	for _, p := range u.People {
		if p.Kind == KindTeacher {
			return true
		}
	}
	return false
}

// Item is the work of one course in one run
type Item struct {
	Course           *course.Course      `json:"-"`
	EnrichmentStatus EnrichmentStatus    `json:"enrichmentStatus"`
	Status           Status              `json:"status"`
	Message          string              `json:"message,omitempty"`
	Realisation      *sisu.Realisation   `json:"-"`
	MoodleCourse     *moodle.Course      `json:"-"`
	Enrollments      []moodle.Enrollment `json:"-"`
	Users            []*UserItem         `json:"users,omitempty"`
	Groups           *groupsync.Tree     `json:"groups,omitempty"`
}

func newItem(c *course.Course) *Item {
	return &Item{
		Course:           c,
		EnrichmentStatus: EnrichmentInProgress,
		Status:           StatusInProgress,
	}
}

// RegistryID returns the registry id of the item's course
func (i *Item) RegistryID() string {
	return i.Course.RegistryID
}

func (i *Item) finish(status Status, message string) {
	i.Status = status
	i.Message = message
}
