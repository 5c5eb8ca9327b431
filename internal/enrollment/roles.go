// Package enrollment decides which Moodle enrolment and role mutations bring a
// single user's roles on a course in line with the study registry.
package enrollment

import (
	"slices"
	"strconv"
	"strings"
)

// RoleSet is a set of Moodle role ids
type RoleSet map[int64]struct{}

// NewRoleSet builds a RoleSet from the given role ids
func NewRoleSet(ids ...int64) RoleSet {
	s := make(RoleSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set
func (s RoleSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Minus returns the ids of s that are not in other
func (s RoleSet) Minus(other RoleSet) RoleSet {
	out := RoleSet{}
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Intersect returns the ids present in both sets
func (s RoleSet) Intersect(other RoleSet) RoleSet {
	out := RoleSet{}
	for id := range s {
		if other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Union returns a new set holding the ids of both sets
func (s RoleSet) Union(other RoleSet) RoleSet {
	out := make(RoleSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold exactly the same ids
func (s RoleSet) Equal(other RoleSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Sorted returns the ids in ascending order
func (s RoleSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s RoleSet) String() string {
	parts := make([]string, 0, len(s))
	for _, id := range s.Sorted() {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// Roles holds the Moodle role ids the service manages
type Roles struct {
	Student int64
	Teacher int64
	// Synced marks every enrolment created by this service
	Synced int64
}

// DesiredRoles returns the roles a registry person should hold on a course.
// The synced marker is added whenever at least one real role is present.
func (r Roles) DesiredRoles(isStudent, isTeacher bool) RoleSet {
	s := RoleSet{}
	if isStudent {
		s[r.Student] = struct{}{}
	}
	if isTeacher {
		s[r.Teacher] = struct{}{}
	}
	if len(s) > 0 {
		s[r.Synced] = struct{}{}
	}
	return s
}
