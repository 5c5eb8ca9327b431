package moodle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
)

// GetCourse returns the course or ErrNotFound
func (c *restClient) GetCourse(ctx context.Context, courseID int64) (*Course, error) {
	var resp struct {
		Courses []struct {
			Course
			Visible int `json:"visible"`
		} `json:"courses"`
	}
	p := newParams().setStr("field", "id").setInt("value", courseID)
	if err := c.call(ctx, "core_course_get_courses_by_field", p, &resp); err != nil {
		return nil, err
	}
	if len(resp.Courses) == 0 {
		return nil, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}
	course := resp.Courses[0].Course
	course.Visible = resp.Courses[0].Visible == 1
	return &course, nil
}

// CreateCourse creates a course while the service account uses the course
// language, so that generated default content is in that language. Calls are
// serialized across the process.
func (c *restClient) CreateCourse(ctx context.Context, nc NewCourse) (int64, error) {
	createCourseMu.Lock()
	defer createCourseMu.Unlock()

	if nc.Lang != "" && nc.Lang != c.serviceLanguage {
		if err := c.setServiceLanguage(ctx, nc.Lang); err != nil {
			return 0, err
		}
		defer func() {
			// the create call's context may already be done
			if err := c.setServiceLanguage(context.WithoutCancel(ctx), c.serviceLanguage); err != nil {
				slog.Error("Failed to restore service account language", "language", c.serviceLanguage, "error", err)
			}
		}()
	}

	p := newParams().
		setStr("courses[0][fullname]", nc.FullName).
		setStr("courses[0][shortname]", nc.ShortName).
		setStr("courses[0][idnumber]", nc.IDNumber).
		setInt("courses[0][categoryid]", nc.CategoryID).
		setInt("courses[0][startdate]", nc.StartDate.Unix())
	if nc.EndDate != nil {
		p.setInt("courses[0][enddate]", nc.EndDate.Unix())
	}
	if nc.Lang != "" {
		p.setStr("courses[0][lang]", nc.Lang)
	}

	var created []struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, "core_course_create_courses", p, &created); err != nil {
		return 0, err
	}
	if len(created) != 1 {
		return 0, fmt.Errorf("moodle core_course_create_courses returned %d courses", len(created))
	}
	return created[0].ID, nil
}

func (c *restClient) setServiceLanguage(ctx context.Context, lang string) error {
	if c.siteUserID == 0 {
		info, err := c.GetSiteInfo(ctx)
		if err != nil {
			return err
		}
		c.siteUserID = info.UserID
	}
	p := newParams().setInt("users[0][id]", c.siteUserID).setStr("users[0][lang]", lang)
	return c.call(ctx, "core_user_update_users", p, nil)
}

// GetSiteInfo returns the site release and the service account
func (c *restClient) GetSiteInfo(ctx context.Context) (*SiteInfo, error) {
	var info SiteInfo
	if err := c.call(ctx, "core_webservice_get_site_info", newParams(), &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetUserByUsername returns the user or ErrNotFound
func (c *restClient) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var users []User
	p := newParams().setStr("field", "username").setStr("values[0]", username)
	if err := c.call(ctx, "core_user_get_users_by_field", p, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	return &users[0], nil
}

type enrolledUser struct {
	ID    int64 `json:"id"`
	Roles []struct {
		RoleID int64 `json:"roleid"`
	} `json:"roles"`
}

// GetEnrollments returns every enrolment on the course. Enrolments missing
// from the active-only listing are suspended.
func (c *restClient) GetEnrollments(ctx context.Context, courseID int64) ([]Enrollment, error) {
	all, err := c.enrolledUsers(ctx, courseID, false)
	if err != nil {
		return nil, err
	}
	active, err := c.enrolledUsers(ctx, courseID, true)
	if err != nil {
		return nil, err
	}

	activeIDs := make(map[int64]bool, len(active))
	for _, u := range active {
		activeIDs[u.ID] = true
	}

	enrollments := make([]Enrollment, 0, len(all))
	for _, u := range all {
		e := Enrollment{UserID: u.ID, Visible: activeIDs[u.ID]}
		for _, r := range u.Roles {
			if !slices.Contains(e.RoleIDs, r.RoleID) {
				e.RoleIDs = append(e.RoleIDs, r.RoleID)
			}
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, nil
}

func (c *restClient) enrolledUsers(ctx context.Context, courseID int64, onlyActive bool) ([]enrolledUser, error) {
	var users []enrolledUser
	p := newParams().
		setInt("courseid", courseID).
		setStr("options[0][name]", "onlyactive").
		setBool("options[0][value]", onlyActive).
		setStr("options[1][name]", "userfields").
		setStr("options[1][value]", "id,roles")
	if err := c.call(ctx, "core_enrol_get_enrolled_users", p, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// BulkEnroll enrols users through the manual enrolment plugin. Enrolling an
// enrolled user updates the suspend flag and adds the role.
func (c *restClient) BulkEnroll(ctx context.Context, courseID int64, enrolments []Enrolment) error {
	if len(enrolments) == 0 {
		return nil
	}
	p := newParams()
	for i, e := range enrolments {
		prefix := "enrolments[" + strconv.Itoa(i) + "]"
		p.setInt(prefix+"[courseid]", courseID).
			setInt(prefix+"[userid]", e.UserID).
			setInt(prefix+"[roleid]", e.RoleID).
			setBool(prefix+"[suspend]", e.Suspend)
	}
	return c.call(ctx, "enrol_manual_enrol_users", p, nil)
}

// BulkSuspend suspends the manual enrolments of the given users
func (c *restClient) BulkSuspend(ctx context.Context, courseID int64, roleID int64, userIDs []int64) error {
	enrolments := make([]Enrolment, 0, len(userIDs))
	for _, id := range userIDs {
		enrolments = append(enrolments, Enrolment{UserID: id, RoleID: roleID, Suspend: true})
	}
	return c.BulkEnroll(ctx, courseID, enrolments)
}

// BulkAssignRoles assigns roles in the course context
func (c *restClient) BulkAssignRoles(ctx context.Context, courseID int64, assignments []RoleAssignment) error {
	return c.roleAssignments(ctx, "core_role_assign_roles", courseID, assignments)
}

// BulkUnassignRoles removes roles in the course context
func (c *restClient) BulkUnassignRoles(ctx context.Context, courseID int64, assignments []RoleAssignment) error {
	return c.roleAssignments(ctx, "core_role_unassign_roles", courseID, assignments)
}

func (c *restClient) roleAssignments(ctx context.Context, function string, courseID int64, assignments []RoleAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	p := newParams()
	for i, a := range assignments {
		prefix := "assignments[" + strconv.Itoa(i) + "]"
		p.setInt(prefix+"[roleid]", a.RoleID).
			setInt(prefix+"[userid]", a.UserID).
			setStr(prefix+"[contextlevel]", "course").
			setInt(prefix+"[instanceid]", courseID)
	}
	return c.call(ctx, function, p, nil)
}

// IsNotFound reports whether err means the course or user does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
