package helpers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// APIKey is the registry API key expected by the fake registry
const APIKey = "integration-test-key"

// FakeRegistry serves realisations and person usernames the way the study
// registry and the identity service do. Fixtures can be replaced while the
// server runs.
type FakeRegistry struct {
	mu           sync.Mutex
	realisations map[string]RealisationFixture
	usernames    map[string]string
	server       *httptest.Server
}

// NewFakeRegistry starts a fake registry
func NewFakeRegistry() *FakeRegistry {
	f := &FakeRegistry{
		realisations: make(map[string]RealisationFixture),
		usernames:    make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /course-unit-realisations/{id}", f.handleRealisation)
	mux.HandleFunc("GET /course-unit-realisations/{id}/enrolments", f.handleEnrolments)
	mux.HandleFunc("GET /persons/{id}", f.handlePerson)
	f.server = httptest.NewServer(mux)
	return f
}

// URL returns the base URL of the fake registry
func (f *FakeRegistry) URL() string {
	return f.server.URL
}

// Close stops the fake registry
func (f *FakeRegistry) Close() {
	f.server.Close()
}

// PutRealisation adds or replaces a realisation
func (f *FakeRegistry) PutRealisation(r RealisationFixture) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.realisations[r.ID] = r
}

// PutPerson maps a person id to a username
func (f *FakeRegistry) PutPerson(personID, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usernames[personID] = username
}

func (f *FakeRegistry) realisation(w http.ResponseWriter, r *http.Request) (RealisationFixture, bool) {
	if r.Header.Get("X-Api-Key") != APIKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return RealisationFixture{}, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rf, ok := f.realisations[r.PathValue("id")]
	if !ok {
		http.NotFound(w, r)
	}
	return rf, ok
}

func (f *FakeRegistry) handleRealisation(w http.ResponseWriter, r *http.Request) {
	rf, ok := f.realisation(w, r)
	if !ok {
		return
	}

	flowState := "NOT_READY"
	if rf.Published {
		flowState = "PUBLISHED"
	}
	infos := make([]map[string]string, 0, len(rf.TeacherIDs))
	for _, id := range rf.TeacherIDs {
		infos = append(infos, map[string]string{"personId": id, "roleUrn": ResponsibleTeacherURN})
	}
	sets := make([]map[string]any, 0, len(rf.GroupSets))
	for _, set := range rf.GroupSets {
		subGroups := make([]map[string]any, 0, len(set.SubGroups))
		for _, sg := range set.SubGroups {
			subGroups = append(subGroups, map[string]any{"id": sg.ID, "name": sg.Name, "cancelled": sg.Cancelled})
		}
		sets = append(sets, map[string]any{"localId": set.LocalID, "name": set.Name, "studySubGroups": subGroups})
	}

	writeJSON(w, map[string]any{
		"id":                  rf.ID,
		"name":                rf.Name,
		"flowState":           flowState,
		"activityPeriod":      map[string]string{"startDate": rf.StartDate, "endDate": rf.EndDate},
		"responsibilityInfos": infos,
		"studyGroupSets":      sets,
	})
}

func (f *FakeRegistry) handleEnrolments(w http.ResponseWriter, r *http.Request) {
	rf, ok := f.realisation(w, r)
	if !ok {
		return
	}
	enrolments := make([]map[string]any, 0, len(rf.Enrolments))
	for _, e := range rf.Enrolments {
		subGroups := e.SubGroupIDs
		if subGroups == nil {
			subGroups = []string{}
		}
		enrolments = append(enrolments, map[string]any{
			"personId":                  e.PersonID,
			"state":                     e.State,
			"confirmedStudySubGroupIds": subGroups,
		})
	}
	writeJSON(w, enrolments)
}

func (f *FakeRegistry) handlePerson(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	username, ok := f.usernames[r.PathValue("id")]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{"username": username})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, strings.TrimSpace(err.Error()), http.StatusInternalServerError)
	}
}
