// Package v1 provides the REST API handlers of the sync service.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/coursesync/sisu-moodle-sync/internal/api/common"
	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/groupsync"
	"github.com/coursesync/sisu-moodle-sync/internal/lock"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
	"github.com/coursesync/sisu-moodle-sync/internal/sync/coordinator"
	"github.com/coursesync/sisu-moodle-sync/internal/sync/state"
)

const (
	defaultCreatedBy  = "api"
	defaultLockReason = "Locked manually"
	maxRequestBody    = 1 << 16
)

// Dependencies are the services behind the API
type Dependencies struct {
	Runs       RunTrigger
	Statuses   state.RunStateService
	Courses    course.Store
	Locks      lock.Service
	Importer   CourseImporter
	Reconciler CourseReconciler
	Groups     GroupSynchronizer
}

// Routes holds the API handlers
type Routes struct {
	deps Dependencies
}

// NewRoutes creates a new Routes instance with the provided dependencies
func NewRoutes(deps Dependencies) *Routes {
	return &Routes{deps: deps}
}

// Router creates the router of the sync API
func Router(deps Dependencies) http.Handler {
	routes := NewRoutes(deps)

	r := chi.NewRouter()

	r.Get("/status", routes.getStatus)
	r.Post("/runs/{runType}", routes.triggerRun)

	r.Route("/courses", func(r chi.Router) {
		r.Get("/", routes.listCourses)
		r.Post("/", routes.importCourse)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", routes.getCourse)
			r.Post("/sync", routes.syncCourse)

			r.Get("/lock", routes.getLock)
			r.Put("/lock", routes.setLock)
			r.Delete("/lock", routes.unlock)

			r.Get("/groups/preview", routes.previewGroups)
			r.Post("/groups/process", routes.processGroups)
		})
	})

	return r
}

func (rr *Routes) getStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := rr.deps.Statuses.ListRunStatuses(r.Context())
	if err != nil {
		rr.writeError(w, r, err, "Failed to list run statuses")
		return
	}
	locked, err := rr.deps.Locks.ListLocked(r.Context())
	if err != nil {
		rr.writeError(w, r, err, "Failed to list locked courses")
		return
	}
	if locked == nil {
		locked = []string{}
	}
	common.WriteJSONResponse(w, StatusResponse{Runs: runs, LockedCourses: locked}, http.StatusOK)
}

func (rr *Routes) triggerRun(w http.ResponseWriter, r *http.Request) {
	runType, err := common.PathParam(r, "runType", common.ValidateRunType)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := rr.deps.Runs.Trigger(r.Context(), runType); err != nil {
		rr.writeError(w, r, err, "Failed to trigger run")
		return
	}
	slog.InfoContext(r.Context(), "Run triggered", "run_type", runType)
	common.WriteJSONResponse(w, TriggerResponse{RunType: runType, Status: "accepted"}, http.StatusAccepted)
}

func (rr *Routes) listCourses(w http.ResponseWriter, r *http.Request) {
	opts := course.ListOptions{IncludeRemoved: r.URL.Query().Get("includeRemoved") == "true"}
	courses, err := rr.deps.Courses.List(r.Context(), opts)
	if err != nil {
		rr.writeError(w, r, err, "Failed to list courses")
		return
	}
	if courses == nil {
		courses = []*course.Course{}
	}
	common.WriteJSONResponse(w, ListCoursesResponse{Courses: courses, Count: len(courses)}, http.StatusOK)
}

func (rr *Routes) importCourse(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.RegistryID = strings.TrimSpace(req.RegistryID)
	if err := common.ValidateRegistryID(req.RegistryID); err != nil {
		common.WriteErrorResponse(w, "registryId "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = defaultCreatedBy
	}

	imported, summary, err := rr.deps.Importer.Import(r.Context(), req.RegistryID, req.CreatedBy)
	if err != nil {
		rr.writeError(w, r, err, "Failed to import course")
		return
	}
	common.WriteJSONResponse(w, ImportResponse{Course: imported, Summary: summary}, http.StatusCreated)
}

func (rr *Routes) getCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	c, err := rr.deps.Courses.FindByRegistryID(r.Context(), id)
	if err != nil {
		rr.writeError(w, r, err, "Failed to get course")
		return
	}
	common.WriteJSONResponse(w, c, http.StatusOK)
}

func (rr *Routes) syncCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	if _, err := rr.deps.Courses.FindByRegistryID(r.Context(), id); err != nil {
		rr.writeError(w, r, err, "Failed to get course")
		return
	}
	summary := rr.deps.Reconciler.Reconcile(r.Context(), process.Selection{
		Type:        process.RunCourses,
		RegistryIDs: []string{id},
	})
	common.WriteJSONResponse(w, summary, http.StatusOK)
}

func (rr *Routes) getLock(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	l, err := rr.deps.Locks.Get(r.Context(), id)
	if err != nil {
		rr.writeError(w, r, err, "Failed to get lock")
		return
	}
	common.WriteJSONResponse(w, l, http.StatusOK)
}

func (rr *Routes) setLock(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	var req LockRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		req.Reason = defaultLockReason
	}
	if err := rr.deps.Locks.SetLock(r.Context(), id, req.Reason); err != nil {
		rr.writeError(w, r, err, "Failed to lock course")
		return
	}
	slog.InfoContext(r.Context(), "Course locked", "course", id, "reason", req.Reason)
	rr.getLock(w, r)
}

func (rr *Routes) unlock(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	if err := rr.deps.Locks.Unlock(r.Context(), id); err != nil {
		rr.writeError(w, r, err, "Failed to unlock course")
		return
	}
	slog.InfoContext(r.Context(), "Course unlocked", "course", id)
	w.WriteHeader(http.StatusNoContent)
}

func (rr *Routes) previewGroups(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	tree, err := rr.deps.Groups.Preview(r.Context(), id)
	if err != nil {
		rr.writeError(w, r, err, "Failed to preview groups")
		return
	}
	common.WriteJSONResponse(w, tree, http.StatusOK)
}

func (rr *Routes) processGroups(w http.ResponseWriter, r *http.Request) {
	id, ok := courseID(w, r)
	if !ok {
		return
	}
	tree, err := rr.deps.Groups.Process(r.Context(), id)
	if err != nil {
		rr.writeError(w, r, err, "Failed to process groups")
		return
	}
	code := http.StatusOK
	if tree.Failed() {
		code = http.StatusBadGateway
	}
	common.WriteJSONResponse(w, tree, code)
}

// writeError maps domain errors to status codes. Unexpected errors are logged
// and reported with the generic message.
func (*Routes) writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, course.ErrNotFound), errors.Is(err, sisu.ErrNotFound):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, state.ErrRunTypeNotFound):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, process.ErrAlreadyImported),
		errors.Is(err, coordinator.ErrRunInProgress),
		errors.Is(err, groupsync.ErrLocked):
		common.WriteErrorResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, groupsync.ErrNotImported):
		common.WriteErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.ErrorContext(r.Context(), message, "error", err)
		common.WriteErrorResponse(w, message, http.StatusInternalServerError)
	}
}

func courseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := common.PathParam(r, "id", common.ValidateRegistryID)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		common.WriteErrorResponse(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
