// Package threshold guards courses against runaway enrolment changes.
package threshold

import (
	"fmt"

	"github.com/coursesync/sisu-moodle-sync/internal/enrollment"
)

// Limit is the safety limit configured for one action type
type Limit struct {
	// Limit rejects the action when at least this many users would receive it
	Limit *int
	// PreventAll rejects the action when count reaches both this value and
	// total, the number of student-side users passed to Check
	PreventAll *int
}

// Violation is returned when an action exceeds its configured limit
type Violation struct {
	Action enrollment.ActionType
	Count  int
	Total  int
	// AllItems is set when the action would have affected every user
	AllItems bool
}

// Error returns the violation message that is stored on the course lock
func (v *Violation) Error() string {
	if v.AllItems {
		return fmt.Sprintf("Action %s is not permitted for all %d items", v.Action, v.Count)
	}
	return fmt.Sprintf("Action %s for %d items exceeds threshold", v.Action, v.Count)
}

// Guard checks action counts against the configured limits. It is read-only
// after construction and safe for concurrent use.
type Guard struct {
	limits map[enrollment.ActionType]Limit
}

// NewGuard creates a Guard. Action types without an entry are unlimited.
func NewGuard(limits map[enrollment.ActionType]Limit) *Guard {
	copied := make(map[enrollment.ActionType]Limit, len(limits))
	for k, v := range limits {
		copied[k] = v
	}
	return &Guard{limits: copied}
}

// Check returns a *Violation if count users may not receive action. total is
// the number of student-side users on the course.
func (g *Guard) Check(action enrollment.ActionType, count, total int) error {
	if g == nil || count == 0 {
		return nil
	}
	limit, ok := g.limits[action]
	if !ok {
		return nil
	}

	if limit.Limit != nil && count >= *limit.Limit {
		return &Violation{Action: action, Count: count, Total: total}
	}
	if limit.PreventAll != nil && count >= total && count >= *limit.PreventAll {
		return &Violation{Action: action, Count: count, Total: total, AllItems: true}
	}
	return nil
}

// CheckAll checks every action type in a fixed order and returns the first violation
func (g *Guard) CheckAll(counts map[enrollment.ActionType]int, total int) error {
	for _, action := range enrollment.ActionTypes {
		if err := g.Check(action, counts[action], total); err != nil {
			return err
		}
	}
	return nil
}
