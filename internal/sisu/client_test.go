package sisu

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursesync/sisu-moodle-sync/internal/httpclient"
)

const realisationJSON = `{
  "id": "otm-1",
  "name": {"fi": "Ohjelmointi", "en": "Programming"},
  "flowState": "PUBLISHED",
  "activityPeriod": {"startDate": "2026-09-01", "endDate": "2026-12-20"},
  "responsibilityInfos": [
    {"personId": "t-1", "roleUrn": "urn:code:course-unit-realisation-responsibility-info-type:responsible-teacher"},
    {"personId": "t-1", "roleUrn": "urn:code:course-unit-realisation-responsibility-info-type:teacher"},
    {"personId": "x-1", "roleUrn": "urn:code:course-unit-realisation-responsibility-info-type:administrative-person"}
  ],
  "studyGroupSets": [
    {"localId": "set-1", "name": {"fi": "Harjoitukset"}, "studySubGroups": [
      {"id": "g1", "name": {"fi": "Ryhmä 1"}, "cancelled": false},
      {"id": "g2", "name": {"fi": "Ryhmä 2"}, "cancelled": true}
    ]}
  ]
}`

const enrolmentsJSON = `[
  {"personId": "s-1", "state": "ENROLLED", "confirmedStudySubGroupIds": ["g1"]},
  {"personId": "s-2", "state": "NOT_ENROLLED", "confirmedStudySubGroupIds": ["g1"]},
  {"personId": "s-3", "state": "ENROLLED", "confirmedStudySubGroupIds": ["g1", "g2"]}
]`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/kori/api/course-unit-realisations/otm-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(realisationJSON))
	})
	mux.HandleFunc("/kori/api/course-unit-realisations/otm-1/enrolments", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(enrolmentsJSON))
	})
	mux.HandleFunc("/kori/api/course-unit-realisations/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClient_GetCourseUnitRealisation(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(httpclient.NewDefaultClient(0), server.URL+"/kori/api/", "key")

	r, err := client.GetCourseUnitRealisation(context.Background(), "otm-1")
	require.NoError(t, err)

	assert.Equal(t, "otm-1", r.ID)
	assert.True(t, r.Published)
	assert.Equal(t, "Programming", r.Name.Pick([]string{"en", "fi"}))
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), r.StartDate)
	require.NotNil(t, r.EndDate)
	assert.True(t, r.EndedBefore(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.False(t, r.EndedBefore(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, []Teacher{{PersonID: "t-1"}}, r.Teachers)
	assert.Equal(t, []Student{
		{PersonID: "s-1", Enrolled: true},
		{PersonID: "s-2", Enrolled: false},
		{PersonID: "s-3", Enrolled: true},
	}, r.Students)

	require.Len(t, r.StudyGroupSets, 1)
	set := r.StudyGroupSets[0]
	assert.Equal(t, "set-1", set.LocalID)
	require.Len(t, set.SubGroups, 2)
	assert.Equal(t, []string{"s-1", "s-3"}, set.SubGroups[0].MemberIDs)
	assert.True(t, set.SubGroups[1].Cancelled)
	assert.Equal(t, []string{"s-3"}, set.SubGroups[1].MemberIDs)
}

func TestClient_Errors(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	client := NewClient(httpclient.NewDefaultClient(0), server.URL+"/kori/api", "key")

	_, err := client.GetCourseUnitRealisation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = client.GetCourseUnitRealisation(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	var httpErr *httpclient.HTTPError
	assert.ErrorAs(t, err, &httpErr)
}

func TestLocalizedText_Pick(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      LocalizedText
		languages []string
		want      string
	}{
		{name: "first preference", text: LocalizedText{"fi": "A", "en": "B"}, languages: []string{"en", "fi"}, want: "B"},
		{name: "skips empty", text: LocalizedText{"fi": "A", "en": ""}, languages: []string{"en", "fi"}, want: "A"},
		{name: "falls back", text: LocalizedText{"sv": "C"}, languages: []string{"en"}, want: "C"},
		{name: "empty", text: nil, languages: []string{"fi"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.text.Pick(tt.languages))
		})
	}
}
