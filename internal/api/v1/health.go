package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coursesync/sisu-moodle-sync/internal/api/common"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/versions"
)

// Pinger is implemented by storage backends that hold connections, such as *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

type readiness struct {
	lms            moodle.Client
	minimumRelease string
	pingers        []Pinger
}

// NewReadinessChecker creates a ReadinessChecker that pings the storage
// backends and requires a Moodle site of at least minimumRelease.
// An empty minimumRelease accepts any release.
func NewReadinessChecker(lms moodle.Client, minimumRelease string, pingers ...Pinger) ReadinessChecker {
	return &readiness{lms: lms, minimumRelease: minimumRelease, pingers: pingers}
}

func (r *readiness) CheckReadiness(ctx context.Context) error {
	for _, p := range r.pingers {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("storage unavailable: %w", err)
		}
	}

	info, err := r.lms.GetSiteInfo(ctx)
	if err != nil {
		return fmt.Errorf("moodle unavailable: %w", err)
	}
	if r.minimumRelease != "" && !versions.AtLeast(info.Release, r.minimumRelease) {
		return fmt.Errorf("moodle release %q is older than %s", info.Release, r.minimumRelease)
	}
	return nil
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(checker ReadinessChecker) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(checker))
	r.Get("/version", versionHandler)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.CheckReadiness(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			common.WriteErrorResponse(w, "Service not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, HealthResponse{Status: "ready"}, http.StatusOK)
	}
}

func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
