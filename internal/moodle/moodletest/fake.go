// Package moodletest provides an in-memory Moodle for tests.
package moodletest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
)

type enrolment struct {
	roles     map[int64]bool
	suspended bool
}

type group struct {
	moodle.Group
	courseID int64
	members  map[int64]bool
}

type grouping struct {
	moodle.Grouping
	courseID int64
	groupIDs []int64
}

// Fake is a thread-safe in-memory implementation of moodle.Client
type Fake struct {
	mu sync.Mutex

	courses    map[int64]*moodle.Course
	users      map[string]moodle.User
	enrolments map[int64]map[int64]*enrolment
	groupings  map[int64]*grouping
	groups     map[int64]*group
	nextID     int64

	// Fail returns an error to inject for a method call, or nil
	Fail func(method string) error

	// Release is reported by GetSiteInfo
	Release string

	calls []string
}

var _ moodle.Client = (*Fake)(nil)

// New creates an empty Fake
func New() *Fake {
	return &Fake{
		courses:    make(map[int64]*moodle.Course),
		users:      make(map[string]moodle.User),
		enrolments: make(map[int64]map[int64]*enrolment),
		groupings:  make(map[int64]*grouping),
		groups:     make(map[int64]*group),
		nextID:     1000,
		Release:    "4.3.2+ (Build: 20240112)",
	}
}

// AddCourse registers a course
func (f *Fake) AddCourse(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courses[id] = &moodle.Course{ID: id, ShortName: fmt.Sprintf("C%d", id), Visible: true}
}

// AddUser registers a user account
func (f *Fake) AddUser(id int64, username string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = moodle.User{ID: id, Username: username}
}

// Enrol sets the enrolment of a user on a course
func (f *Fake) Enrol(courseID, userID int64, visible bool, roleIDs ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.enrolment(courseID, userID)
	e.suspended = !visible
	for _, r := range roleIDs {
		e.roles[r] = true
	}
}

// AddGrouping adds a grouping to a course and returns its id
func (f *Fake) AddGrouping(courseID int64, name, idNumber string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addGrouping(courseID, name, idNumber)
}

// AddGroup adds a group with members to a grouping and returns its id
func (f *Fake) AddGroup(groupingID int64, name, idNumber string, memberIDs ...int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	gr := f.groupings[groupingID]
	id := f.addGroup(gr.courseID, name, idNumber)
	for _, m := range memberIDs {
		f.groups[id].members[m] = true
	}
	gr.groupIDs = append(gr.groupIDs, id)
	return id
}

// AddUngroupedGroup adds a group with members that belongs to no grouping and returns its id
func (f *Fake) AddUngroupedGroup(courseID int64, name, idNumber string, memberIDs ...int64) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.addGroup(courseID, name, idNumber)
	for _, m := range memberIDs {
		f.groups[id].members[m] = true
	}
	return id
}

// Enrollment returns the current state of one enrolment
func (f *Fake) Enrollment(courseID, userID int64) (roles []int64, visible, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.enrolments[courseID][userID]
	if !ok {
		return nil, false, false
	}
	return sortedKeys(e.roles), !e.suspended, true
}

// Calls returns the names of the methods called so far
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// MutationCalls returns the names of the mutating methods called so far
func (f *Fake) MutationCalls() []string {
	var out []string
	for _, c := range f.Calls() {
		switch c {
		case "GetSiteInfo", "GetCourse", "GetEnrollments", "GetUserByUsername",
			"GetGroupingsWithGroups", "GetCourseGroups", "GetGroupMembers":
		default:
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// record must be called with mu held
func (f *Fake) record(method string) error {
	f.calls = append(f.calls, method)
	if f.Fail != nil {
		return f.Fail(method)
	}
	return nil
}

func (f *Fake) enrolment(courseID, userID int64) *enrolment {
	if f.enrolments[courseID] == nil {
		f.enrolments[courseID] = make(map[int64]*enrolment)
	}
	e, ok := f.enrolments[courseID][userID]
	if !ok {
		e = &enrolment{roles: make(map[int64]bool)}
		f.enrolments[courseID][userID] = e
	}
	return e
}

// idNumberTaken reports whether another group (or grouping) of the course
// already uses idNumber. Moodle requires id numbers to be unique per course.
func (f *Fake) idNumberTaken(groupings bool, courseID int64, idNumber string, except int64) bool {
	if idNumber == "" {
		return false
	}
	if groupings {
		for id, gr := range f.groupings {
			if id != except && gr.courseID == courseID && gr.IDNumber == idNumber {
				return true
			}
		}
		return false
	}
	for id, g := range f.groups {
		if id != except && g.courseID == courseID && g.IDNumber == idNumber {
			return true
		}
	}
	return false
}

func idNumberTakenError(function, idNumber string) error {
	return &moodle.Exception{
		Function:  function,
		Exception: "moodle_exception",
		ErrorCode: "idnumbertaken",
		Message:   fmt.Sprintf("ID number %s is already used", idNumber),
	}
}

func (f *Fake) addGrouping(courseID int64, name, idNumber string) int64 {
	f.nextID++
	f.groupings[f.nextID] = &grouping{
		Grouping: moodle.Grouping{ID: f.nextID, Name: name, IDNumber: idNumber},
		courseID: courseID,
	}
	return f.nextID
}

func (f *Fake) addGroup(courseID int64, name, idNumber string) int64 {
	f.nextID++
	f.groups[f.nextID] = &group{
		Group:    moodle.Group{ID: f.nextID, Name: name, IDNumber: idNumber},
		courseID: courseID,
		members:  make(map[int64]bool),
	}
	return f.nextID
}

// GetSiteInfo implements moodle.Client
func (f *Fake) GetSiteInfo(_ context.Context) (*moodle.SiteInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetSiteInfo"); err != nil {
		return nil, err
	}
	return &moodle.SiteInfo{SiteName: "Fake Moodle", Username: "sync", UserID: 2, Release: f.Release}, nil
}

// GetCourse implements moodle.Client
func (f *Fake) GetCourse(_ context.Context, courseID int64) (*moodle.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetCourse"); err != nil {
		return nil, err
	}
	c, ok := f.courses[courseID]
	if !ok {
		return nil, fmt.Errorf("course %d: %w", courseID, moodle.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// CreateCourse implements moodle.Client
func (f *Fake) CreateCourse(_ context.Context, nc moodle.NewCourse) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCourse"); err != nil {
		return 0, err
	}
	f.nextID++
	f.courses[f.nextID] = &moodle.Course{
		ID: f.nextID, ShortName: nc.ShortName, FullName: nc.FullName, IDNumber: nc.IDNumber, Visible: true,
	}
	return f.nextID, nil
}

// GetEnrollments implements moodle.Client
func (f *Fake) GetEnrollments(_ context.Context, courseID int64) ([]moodle.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetEnrollments"); err != nil {
		return nil, err
	}
	userIDs := sortedKeys(boolKeys(f.enrolments[courseID]))
	out := make([]moodle.Enrollment, 0, len(userIDs))
	for _, id := range userIDs {
		e := f.enrolments[courseID][id]
		out = append(out, moodle.Enrollment{UserID: id, RoleIDs: sortedKeys(e.roles), Visible: !e.suspended})
	}
	return out, nil
}

// GetUserByUsername implements moodle.Client
func (f *Fake) GetUserByUsername(_ context.Context, username string) (*moodle.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetUserByUsername"); err != nil {
		return nil, err
	}
	u, ok := f.users[username]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", username, moodle.ErrNotFound)
	}
	return &u, nil
}

// BulkEnroll implements moodle.Client
func (f *Fake) BulkEnroll(_ context.Context, courseID int64, enrolments []moodle.Enrolment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BulkEnroll"); err != nil {
		return err
	}
	for _, en := range enrolments {
		e := f.enrolment(courseID, en.UserID)
		e.roles[en.RoleID] = true
		e.suspended = en.Suspend
	}
	return nil
}

// BulkSuspend implements moodle.Client
func (f *Fake) BulkSuspend(_ context.Context, courseID int64, roleID int64, userIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BulkSuspend"); err != nil {
		return err
	}
	for _, id := range userIDs {
		e := f.enrolment(courseID, id)
		e.roles[roleID] = true
		e.suspended = true
	}
	return nil
}

// BulkAssignRoles implements moodle.Client
func (f *Fake) BulkAssignRoles(_ context.Context, courseID int64, assignments []moodle.RoleAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BulkAssignRoles"); err != nil {
		return err
	}
	for _, a := range assignments {
		f.enrolment(courseID, a.UserID).roles[a.RoleID] = true
	}
	return nil
}

// BulkUnassignRoles implements moodle.Client
func (f *Fake) BulkUnassignRoles(_ context.Context, courseID int64, assignments []moodle.RoleAssignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BulkUnassignRoles"); err != nil {
		return err
	}
	for _, a := range assignments {
		if e, ok := f.enrolments[courseID][a.UserID]; ok {
			delete(e.roles, a.RoleID)
		}
	}
	return nil
}

// GetGroupingsWithGroups implements moodle.Client
func (f *Fake) GetGroupingsWithGroups(_ context.Context, courseID int64) ([]moodle.Grouping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetGroupingsWithGroups"); err != nil {
		return nil, err
	}
	var out []moodle.Grouping
	for _, id := range sortedKeys(boolKeys(f.groupings)) {
		gr := f.groupings[id]
		if gr.courseID != courseID {
			continue
		}
		g := gr.Grouping
		g.Groups = nil
		for _, gid := range gr.groupIDs {
			grp := f.groups[gid]
			cp := grp.Group
			cp.MemberIDs = sortedKeys(grp.members)
			g.Groups = append(g.Groups, cp)
		}
		out = append(out, g)
	}
	return out, nil
}

// GetCourseGroups implements moodle.Client
func (f *Fake) GetCourseGroups(_ context.Context, courseID int64) ([]moodle.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetCourseGroups"); err != nil {
		return nil, err
	}
	var out []moodle.Group
	for _, id := range sortedKeys(boolKeys(f.groups)) {
		g := f.groups[id]
		if g.courseID != courseID {
			continue
		}
		cp := g.Group
		cp.MemberIDs = nil
		out = append(out, cp)
	}
	return out, nil
}

// GetGroupMembers implements moodle.Client
func (f *Fake) GetGroupMembers(_ context.Context, groupIDs []int64) (map[int64][]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetGroupMembers"); err != nil {
		return nil, err
	}
	out := make(map[int64][]int64, len(groupIDs))
	for _, id := range groupIDs {
		if g, ok := f.groups[id]; ok {
			out[id] = sortedKeys(g.members)
		}
	}
	return out, nil
}

// CreateGroupings implements moodle.Client
func (f *Fake) CreateGroupings(_ context.Context, courseID int64, groupings []moodle.NewGroup) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateGroupings"); err != nil {
		return nil, err
	}
	for _, g := range groupings {
		if f.idNumberTaken(true, courseID, g.IDNumber, 0) {
			return nil, idNumberTakenError("core_group_create_groupings", g.IDNumber)
		}
	}
	ids := make([]int64, 0, len(groupings))
	for _, g := range groupings {
		ids = append(ids, f.addGrouping(courseID, g.Name, g.IDNumber))
	}
	return ids, nil
}

// CreateGroups implements moodle.Client
func (f *Fake) CreateGroups(_ context.Context, courseID int64, groups []moodle.NewGroup) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateGroups"); err != nil {
		return nil, err
	}
	for _, g := range groups {
		if f.idNumberTaken(false, courseID, g.IDNumber, 0) {
			return nil, idNumberTakenError("core_group_create_groups", g.IDNumber)
		}
	}
	ids := make([]int64, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, f.addGroup(courseID, g.Name, g.IDNumber))
	}
	return ids, nil
}

// UpdateGroupings implements moodle.Client
func (f *Fake) UpdateGroupings(_ context.Context, updates []moodle.GroupUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateGroupings"); err != nil {
		return err
	}
	for _, u := range updates {
		if g, ok := f.groupings[u.ID]; ok && f.idNumberTaken(true, g.courseID, u.IDNumber, u.ID) {
			return idNumberTakenError("core_group_update_groupings", u.IDNumber)
		}
	}
	for _, u := range updates {
		if g, ok := f.groupings[u.ID]; ok {
			g.Name, g.IDNumber = u.Name, u.IDNumber
		}
	}
	return nil
}

// UpdateGroups implements moodle.Client
func (f *Fake) UpdateGroups(_ context.Context, updates []moodle.GroupUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateGroups"); err != nil {
		return err
	}
	for _, u := range updates {
		if g, ok := f.groups[u.ID]; ok && f.idNumberTaken(false, g.courseID, u.IDNumber, u.ID) {
			return idNumberTakenError("core_group_update_groups", u.IDNumber)
		}
	}
	for _, u := range updates {
		if g, ok := f.groups[u.ID]; ok {
			g.Name, g.IDNumber = u.Name, u.IDNumber
		}
	}
	return nil
}

// AssignGroupsToGrouping implements moodle.Client
func (f *Fake) AssignGroupsToGrouping(_ context.Context, groupingID int64, groupIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AssignGroupsToGrouping"); err != nil {
		return err
	}
	gr, ok := f.groupings[groupingID]
	if !ok {
		return fmt.Errorf("grouping %d: %w", groupingID, moodle.ErrNotFound)
	}
	for _, id := range groupIDs {
		if !slices.Contains(gr.groupIDs, id) {
			gr.groupIDs = append(gr.groupIDs, id)
		}
	}
	return nil
}

// DeleteGroupings implements moodle.Client
func (f *Fake) DeleteGroupings(_ context.Context, groupingIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteGroupings"); err != nil {
		return err
	}
	for _, id := range groupingIDs {
		delete(f.groupings, id)
	}
	return nil
}

// DeleteGroups implements moodle.Client
func (f *Fake) DeleteGroups(_ context.Context, groupIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteGroups"); err != nil {
		return err
	}
	for _, id := range groupIDs {
		delete(f.groups, id)
		for _, gr := range f.groupings {
			gr.groupIDs = slices.DeleteFunc(gr.groupIDs, func(g int64) bool { return g == id })
		}
	}
	return nil
}

// AddGroupMembers implements moodle.Client
func (f *Fake) AddGroupMembers(_ context.Context, members []moodle.GroupMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("AddGroupMembers"); err != nil {
		return err
	}
	for _, m := range members {
		if g, ok := f.groups[m.GroupID]; ok {
			g.members[m.UserID] = true
		}
	}
	return nil
}

// RemoveGroupMembers implements moodle.Client
func (f *Fake) RemoveGroupMembers(_ context.Context, members []moodle.GroupMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RemoveGroupMembers"); err != nil {
		return err
	}
	for _, m := range members {
		if g, ok := f.groups[m.GroupID]; ok {
			delete(g.members, m.UserID)
		}
	}
	return nil
}

func boolKeys[V any](m map[int64]V) map[int64]bool {
	out := make(map[int64]bool, len(m))
	for k := range m {
		out[k] = true
	}
	return out
}

func sortedKeys(m map[int64]bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
