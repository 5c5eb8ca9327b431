package helpers

// Role ids of the Moodle site used by the integration tests
const (
	StudentRoleID int64 = 5
	TeacherRoleID int64 = 3
	SyncedRoleID  int64 = 11
)

// Responsibility role of a teacher in the registry
const ResponsibleTeacherURN = "urn:code:course-unit-realisation-responsibility-info-type:responsible-teacher"

// RealisationFixture is a course-unit-realisation served by the fake registry
type RealisationFixture struct {
	ID         string
	Name       map[string]string
	Published  bool
	StartDate  string
	EndDate    string
	TeacherIDs []string
	Enrolments []EnrolmentFixture
	GroupSets  []GroupSetFixture
}

// EnrolmentFixture is one student enrolment of a realisation
type EnrolmentFixture struct {
	PersonID    string
	State       string
	SubGroupIDs []string
}

// GroupSetFixture is a study group set and its sub-groups
type GroupSetFixture struct {
	LocalID   string
	Name      map[string]string
	SubGroups []SubGroupFixture
}

// SubGroupFixture is one study sub-group
type SubGroupFixture struct {
	ID        string
	Name      map[string]string
	Cancelled bool
}

// NewRealisation returns a published realisation that is running for years to come
func NewRealisation(id string) RealisationFixture {
	return RealisationFixture{
		ID:        id,
		Name:      map[string]string{"fi": "Ohjelmoinnin perusteet", "en": "Introduction to programming"},
		Published: true,
		StartDate: "2026-01-01",
		EndDate:   "2099-12-31",
	}
}

// WithTeacher adds a responsible teacher
func (r RealisationFixture) WithTeacher(personID string) RealisationFixture {
	r.TeacherIDs = append(r.TeacherIDs, personID)
	return r
}

// WithStudent adds a confirmed enrolment in the given sub-groups
func (r RealisationFixture) WithStudent(personID string, subGroupIDs ...string) RealisationFixture {
	r.Enrolments = append(r.Enrolments, EnrolmentFixture{
		PersonID:    personID,
		State:       "ENROLLED",
		SubGroupIDs: subGroupIDs,
	})
	return r
}

// WithGroupSet adds a study group set with one sub-group per id
func (r RealisationFixture) WithGroupSet(localID string, subGroupIDs ...string) RealisationFixture {
	set := GroupSetFixture{LocalID: localID, Name: map[string]string{"en": "Set " + localID}}
	for _, id := range subGroupIDs {
		set.SubGroups = append(set.SubGroups, SubGroupFixture{ID: id, Name: map[string]string{"en": "Group " + id}})
	}
	r.GroupSets = append(r.GroupSets, set)
	return r
}
