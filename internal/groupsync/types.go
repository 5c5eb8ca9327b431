// Package groupsync mirrors the registry's study groups into Moodle groupings,
// groups and group memberships.
package groupsync

import "strings"

// IDNumberPrefix marks groupings and groups created and owned by the sync
const IDNumberPrefix = "sisu:"

// ChangeType is what happens to one node of the change tree
type ChangeType string

// Change types
const (
	ChangeCreate ChangeType = "create"
	ChangeUpdate ChangeType = "update"
	ChangeKeep   ChangeType = "keep"
	ChangeDelete ChangeType = "delete"
	// ChangeDetached marks Moodle objects not owned by the sync. They are
	// reported but never modified.
	ChangeDetached ChangeType = "detached"
)

// ApplyStatus is the outcome of applying one change
type ApplyStatus string

// Apply statuses
const (
	StatusNotApplied ApplyStatus = "not_applied"
	StatusApplied    ApplyStatus = "applied"
	StatusFailed     ApplyStatus = "failed"
)

// GroupingChange is a grouping and the changes of its groups
type GroupingChange struct {
	Type ChangeType `json:"type"`
	// MoodleID is zero until the grouping exists in Moodle
	MoodleID     int64         `json:"moodleId,omitempty"`
	RegistryID   string        `json:"registryId,omitempty"`
	CurrentName  string        `json:"currentName,omitempty"`
	ProposedName string        `json:"proposedName,omitempty"`
	IDNumber     string        `json:"idNumber,omitempty"`
	Status       ApplyStatus   `json:"status"`
	Errors       []string      `json:"errors,omitempty"`
	Groups       []GroupChange `json:"groups"`
}

// GroupChange is a group and the changes of its memberships
type GroupChange struct {
	Type         ChangeType `json:"type"`
	MoodleID     int64      `json:"moodleId,omitempty"`
	RegistryID   string     `json:"registryId,omitempty"`
	CurrentName  string     `json:"currentName,omitempty"`
	ProposedName string     `json:"proposedName,omitempty"`
	IDNumber     string     `json:"idNumber,omitempty"`
	// Assign marks an existing group that is outside its grouping and is
	// put back into it rather than created again
	Assign  bool               `json:"assign,omitempty"`
	Status  ApplyStatus        `json:"status"`
	Errors  []string           `json:"errors,omitempty"`
	Members []MembershipChange `json:"members"`
}

// MembershipChange is one user in one group
type MembershipChange struct {
	Type         ChangeType  `json:"type"`
	MoodleUserID int64       `json:"moodleUserId"`
	PersonID     string      `json:"personId,omitempty"`
	Status       ApplyStatus `json:"status"`
	Errors       []string    `json:"errors,omitempty"`
}

// Tree is the computed group change tree of one course
type Tree struct {
	CourseRegistryID string           `json:"courseRegistryId"`
	MoodleCourseID   int64            `json:"moodleCourseId"`
	Groupings        []GroupingChange `json:"groupings"`
}

// Failed reports whether any change of the tree failed to apply
func (t *Tree) Failed() bool {
	for _, gr := range t.Groupings {
		if gr.Status == StatusFailed {
			return true
		}
		for _, g := range gr.Groups {
			if g.Status == StatusFailed {
				return true
			}
			for _, m := range g.Members {
				if m.Status == StatusFailed {
					return true
				}
			}
		}
	}
	return false
}

// Counts returns the number of changes per change type across all levels
func (t *Tree) Counts() map[ChangeType]int {
	counts := make(map[ChangeType]int)
	for _, gr := range t.Groupings {
		counts[gr.Type]++
		for _, g := range gr.Groups {
			counts[g.Type]++
			for _, m := range g.Members {
				counts[m.Type]++
			}
		}
	}
	return counts
}

// managedKey returns the registry id carried by a sync-owned id number
func managedKey(idNumber string) (string, bool) {
	key, ok := strings.CutPrefix(idNumber, IDNumberPrefix)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func idNumber(registryID string) string {
	return IDNumberPrefix + registryID
}
