package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/coursesync/sisu-moodle-sync/internal/api"
	v1 "github.com/coursesync/sisu-moodle-sync/internal/api/v1"
	"github.com/coursesync/sisu-moodle-sync/internal/api/v1/mocks"
	"github.com/coursesync/sisu-moodle-sync/internal/lock"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
	statemocks "github.com/coursesync/sisu-moodle-sync/internal/sync/state/mocks"
)

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	// No expectations needed - health check doesn't call the checker
	server := api.NewServer(mocks.NewMockReadinessChecker(ctrl), v1.Dependencies{})

	req, err := http.NewRequest("GET", "/health", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
}

func TestReadinessEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		checkErr       error
		expectedStatus int
		expectedKey    string
	}{
		{
			name:           "service ready",
			expectedStatus: http.StatusOK,
			expectedKey:    "status",
		},
		{
			name:           "service not ready",
			checkErr:       errors.New("moodle unavailable"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedKey:    "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			checker := mocks.NewMockReadinessChecker(ctrl)
			checker.EXPECT().CheckReadiness(gomock.Any()).Return(tt.checkErr)

			server := api.NewServer(checker, v1.Dependencies{})

			req, err := http.NewRequest("GET", "/readiness", nil)
			require.NoError(t, err)

			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)

			var response map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Contains(t, response, tt.expectedKey)
		})
	}
}

func TestVersionEndpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	server := api.NewServer(mocks.NewMockReadinessChecker(ctrl), v1.Dependencies{})

	req, err := http.NewRequest("GET", "/version", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Contains(t, response, "version")
	assert.Contains(t, response, "commit")
	assert.Contains(t, response, "build_date")
	assert.Contains(t, response, "go_version")
	assert.Contains(t, response, "platform")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		handler        http.Handler
		expectedStatus int
	}{
		{
			name: "handler mounted",
			handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("# metrics\n"))
			}),
			expectedStatus: http.StatusOK,
		},
		{
			name:           "scraping disabled",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctrl := gomock.NewController(t)
			t.Cleanup(ctrl.Finish)

			server := api.NewServer(mocks.NewMockReadinessChecker(ctrl), v1.Dependencies{},
				api.WithMetricsHandler(tt.handler))

			rr := httptest.NewRecorder()
			server.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestAPIMountedUnderVersionPrefix(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	statuses := statemocks.NewMockRunStateService(ctrl)
	statuses.EXPECT().ListRunStatuses(gomock.Any()).Return(map[string]*status.RunStatus{
		"full": {Phase: status.RunPhaseComplete},
	}, nil)

	server := api.NewServer(mocks.NewMockReadinessChecker(ctrl), v1.Dependencies{
		Statuses: statuses,
		Locks:    lock.NewMemoryService(),
	}, api.WithMiddlewares(api.LoggingMiddleware))

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/status", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var response v1.StatusResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
	assert.Equal(t, status.RunPhaseComplete, response.Runs["full"].Phase)
	assert.Empty(t, response.LockedCourses)
}
