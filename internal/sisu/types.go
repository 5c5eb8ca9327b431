package sisu

import "time"

// Enrolment states and responsibility roles that matter to the sync
const (
	EnrolmentStateEnrolled = "ENROLLED"
	FlowStatePublished     = "PUBLISHED"

	roleURNPrefix          = "urn:code:course-unit-realisation-responsibility-info-type:"
	RoleResponsibleTeacher = roleURNPrefix + "responsible-teacher"
	RoleTeacher            = roleURNPrefix + "teacher"
)

// LocalizedText is a text keyed by language code
type LocalizedText map[string]string

// Pick returns the text in the first of the given languages that has a
// non-empty value, falling back to any value in key order.
func (l LocalizedText) Pick(languages []string) string {
	for _, lang := range languages {
		if v := l[lang]; v != "" {
			return v
		}
	}
	for _, lang := range []string{"fi", "en", "sv"} {
		if v := l[lang]; v != "" {
			return v
		}
	}
	for _, v := range l {
		if v != "" {
			return v
		}
	}
	return ""
}

// Realisation is the registry view of one course-unit-realisation with its
// people and study groups.
type Realisation struct {
	ID             string
	Name           LocalizedText
	StartDate      time.Time
	EndDate        *time.Time
	Published      bool
	Students       []Student
	Teachers       []Teacher
	StudyGroupSets []StudyGroupSet
}

// Student is one enrolment of a person on a realisation
type Student struct {
	PersonID string
	// Enrolled is true when the enrolment is confirmed
	Enrolled bool
}

// Teacher is a person responsible for teaching the realisation
type Teacher struct {
	PersonID string
}

// StudyGroupSet is a set of alternative study sub-groups
type StudyGroupSet struct {
	LocalID   string
	Name      LocalizedText
	SubGroups []StudySubGroup
}

// StudySubGroup is one study group and its confirmed members
type StudySubGroup struct {
	ID        string
	Name      LocalizedText
	Cancelled bool
	MemberIDs []string
}

// EndedBefore reports whether the realisation ended before t
func (r *Realisation) EndedBefore(t time.Time) bool {
	return r.EndDate != nil && r.EndDate.Before(t)
}
