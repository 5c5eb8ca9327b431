package moodle

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a course or user does not exist in Moodle
var ErrNotFound = errors.New("not found in moodle")

// Exception is an error reported by the Moodle web service in a 200 response
type Exception struct {
	Function  string `json:"-"`
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
	DebugInfo string `json:"debuginfo,omitempty"`
}

// Error returns the error message
func (e *Exception) Error() string {
	return fmt.Sprintf("moodle %s failed: %s (%s): %s", e.Function, e.Exception, e.ErrorCode, e.Message)
}

// Course is a Moodle course
type Course struct {
	ID        int64  `json:"id"`
	ShortName string `json:"shortname"`
	FullName  string `json:"fullname"`
	IDNumber  string `json:"idnumber"`
	Visible   bool   `json:"-"`
}

// NewCourse holds the fields of a course to create
type NewCourse struct {
	FullName   string
	ShortName  string
	IDNumber   string
	CategoryID int64
	StartDate  time.Time
	EndDate    *time.Time
	// Lang is the language the service account uses while the course is created
	Lang string
}

// SiteInfo describes the Moodle site and the service account
type SiteInfo struct {
	SiteName string `json:"sitename"`
	Username string `json:"username"`
	UserID   int64  `json:"userid"`
	// Release is the human readable release, e.g. "4.3.2+ (Build: 20240112)"
	Release string `json:"release"`
}

// User is a Moodle user account
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Enrollment is one user's enrolment on a course
type Enrollment struct {
	UserID  int64
	RoleIDs []int64
	// Visible is false when the enrolment is suspended
	Visible bool
}

// Enrolment is one entry of a bulk manual enrolment call
type Enrolment struct {
	UserID  int64
	RoleID  int64
	Suspend bool
}

// RoleAssignment is one entry of a bulk role assign or unassign call
type RoleAssignment struct {
	UserID int64
	RoleID int64
}

// Grouping is a Moodle grouping with its groups
type Grouping struct {
	ID       int64
	Name     string
	IDNumber string
	Groups   []Group
}

// Group is a Moodle group with its members
type Group struct {
	ID        int64
	Name      string
	IDNumber  string
	MemberIDs []int64
}

// NewGroup holds the fields of a group or grouping to create
type NewGroup struct {
	Name     string
	IDNumber string
}

// GroupUpdate renames a group or grouping
type GroupUpdate struct {
	ID       int64
	Name     string
	IDNumber string
}

// GroupMember is one user in one group
type GroupMember struct {
	GroupID int64
	UserID  int64
}
