package enrollment

// ActionType names one kind of enrolment mutation
type ActionType string

// Action types in the order they are applied within a course
const (
	ActionAddEnrollment        ActionType = "add_enrollment"
	ActionAddRoles             ActionType = "add_roles"
	ActionRemoveRoles          ActionType = "remove_roles"
	ActionSuspendEnrollment    ActionType = "suspend_enrollment"
	ActionReactivateEnrollment ActionType = "reactivate_enrollment"
)

// ActionTypes lists every action type
var ActionTypes = []ActionType{
	ActionAddEnrollment,
	ActionAddRoles,
	ActionSuspendEnrollment,
	ActionReactivateEnrollment,
	ActionRemoveRoles,
}

// Action is one intended mutation for one user
type Action struct {
	Type  ActionType
	Roles RoleSet
}

// Input is the desired and actual role state of one user on one course
type Input struct {
	// Desired is the role set implied by the registry, see Roles.DesiredRoles
	Desired RoleSet
	// Enrolled is false when the user has no Moodle enrolment record on the course
	Enrolled bool
	// Current is the role set the user holds in Moodle
	Current RoleSet
	// Visible is false when the enrolment is suspended
	Visible bool
}

// Resolver computes enrolment actions for the configured roles
type Resolver struct {
	roles Roles
}

// NewResolver creates a Resolver for the given role ids
func NewResolver(roles Roles) *Resolver {
	return &Resolver{roles: roles}
}

// Roles returns the role ids the resolver was created with
func (r *Resolver) Roles() Roles {
	return r.roles
}

// Resolve returns the ordered actions that move the user from Current to Desired.
// Only the student role is ever removed. A user whose only role is the synced
// marker is a suspended former student: gaining the student role reactivates
// them instead of adding the role again. Suspension is skipped for teachers and
// for enrolments that are already invisible so repeated runs do not oscillate.
func (r *Resolver) Resolve(in Input) []Action {
	if !in.Enrolled {
		if len(in.Desired) == 0 {
			return nil
		}
		return []Action{{Type: ActionAddEnrollment, Roles: in.Desired.Union(nil)}}
	}

	toAdd := in.Desired.Minus(in.Current)
	toRemove := in.Current.Minus(in.Desired).Intersect(NewRoleSet(r.roles.Student))

	onlySynced := in.Current.Equal(NewRoleSet(r.roles.Synced))

	reactivate := toAdd.Has(r.roles.Student) && onlySynced
	if reactivate {
		delete(toAdd, r.roles.Student)
	}

	suspend := (toRemove.Has(r.roles.Student) || (onlySynced && !in.Desired.Has(r.roles.Student))) &&
		!in.Current.Has(r.roles.Teacher) &&
		in.Visible

	var actions []Action
	if len(toAdd) > 0 {
		actions = append(actions, Action{Type: ActionAddRoles, Roles: toAdd})
	}
	switch {
	case reactivate:
		actions = append(actions, Action{Type: ActionReactivateEnrollment, Roles: NewRoleSet(r.roles.Student)})
	case suspend:
		actions = append(actions, Action{Type: ActionSuspendEnrollment, Roles: NewRoleSet(r.roles.Synced)})
	}
	if len(toRemove) > 0 {
		actions = append(actions, Action{Type: ActionRemoveRoles, Roles: toRemove})
	}
	return actions
}
