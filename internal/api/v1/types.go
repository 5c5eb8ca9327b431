package v1

import (
	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse is the state of the scheduled runs and the locked courses
type StatusResponse struct {
	Runs          map[string]*status.RunStatus `json:"runs"`
	LockedCourses []string                     `json:"lockedCourses"`
}

// TriggerResponse acknowledges a triggered run
type TriggerResponse struct {
	RunType string `json:"runType"`
	Status  string `json:"status"`
}

// ImportRequest asks for a realisation to be imported as a Moodle course
type ImportRequest struct {
	RegistryID string `json:"registryId"`
	CreatedBy  string `json:"createdBy,omitempty"`
}

// ImportResponse is the imported course and the outcome of its first sync
type ImportResponse struct {
	Course  *course.Course   `json:"course"`
	Summary *process.Summary `json:"summary,omitempty"`
}

// ListCoursesResponse lists the mirrored courses
type ListCoursesResponse struct {
	Courses []*course.Course `json:"courses"`
	Count   int              `json:"count"`
}

// LockRequest locks a course
type LockRequest struct {
	Reason string `json:"reason"`
}
