package moodle

import (
	"context"
	"fmt"
	"strconv"
)

// GetGroupingsWithGroups returns the course groupings with their groups and members
func (c *restClient) GetGroupingsWithGroups(ctx context.Context, courseID int64) ([]Grouping, error) {
	var courseGroupings []struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, "core_group_get_course_groupings", newParams().setInt("courseid", courseID), &courseGroupings); err != nil {
		return nil, err
	}
	if len(courseGroupings) == 0 {
		return nil, nil
	}

	p := newParams().setBool("returngroups", true)
	for i, g := range courseGroupings {
		p.setInt("groupingids["+strconv.Itoa(i)+"]", g.ID)
	}
	var detailed []struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		IDNumber string `json:"idnumber"`
		Groups   []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			IDNumber string `json:"idnumber"`
		} `json:"groups"`
	}
	if err := c.call(ctx, "core_group_get_groupings", p, &detailed); err != nil {
		return nil, err
	}

	var groupIDs []int64
	for _, g := range detailed {
		for _, grp := range g.Groups {
			groupIDs = append(groupIDs, grp.ID)
		}
	}
	members, err := c.GetGroupMembers(ctx, groupIDs)
	if err != nil {
		return nil, err
	}

	groupings := make([]Grouping, 0, len(detailed))
	for _, g := range detailed {
		grouping := Grouping{ID: g.ID, Name: g.Name, IDNumber: g.IDNumber}
		for _, grp := range g.Groups {
			grouping.Groups = append(grouping.Groups, Group{
				ID:        grp.ID,
				Name:      grp.Name,
				IDNumber:  grp.IDNumber,
				MemberIDs: members[grp.ID],
			})
		}
		groupings = append(groupings, grouping)
	}
	return groupings, nil
}

// GetCourseGroups returns every group of the course, grouped or not, without members
func (c *restClient) GetCourseGroups(ctx context.Context, courseID int64) ([]Group, error) {
	var resp []struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		IDNumber string `json:"idnumber"`
	}
	if err := c.call(ctx, "core_group_get_course_groups", newParams().setInt("courseid", courseID), &resp); err != nil {
		return nil, err
	}
	groups := make([]Group, 0, len(resp))
	for _, g := range resp {
		groups = append(groups, Group{ID: g.ID, Name: g.Name, IDNumber: g.IDNumber})
	}
	return groups, nil
}

// GetGroupMembers returns the member user ids per group id
func (c *restClient) GetGroupMembers(ctx context.Context, groupIDs []int64) (map[int64][]int64, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	p := newParams()
	for i, id := range groupIDs {
		p.setInt("groupids["+strconv.Itoa(i)+"]", id)
	}
	var resp []struct {
		GroupID int64   `json:"groupid"`
		UserIDs []int64 `json:"userids"`
	}
	if err := c.call(ctx, "core_group_get_group_members", p, &resp); err != nil {
		return nil, err
	}
	members := make(map[int64][]int64, len(resp))
	for _, r := range resp {
		members[r.GroupID] = r.UserIDs
	}
	return members, nil
}

// CreateGroupings creates groupings and returns their ids in input order
func (c *restClient) CreateGroupings(ctx context.Context, courseID int64, groupings []NewGroup) ([]int64, error) {
	return c.create(ctx, "core_group_create_groupings", "groupings", courseID, groupings)
}

// CreateGroups creates groups and returns their ids in input order
func (c *restClient) CreateGroups(ctx context.Context, courseID int64, groups []NewGroup) ([]int64, error) {
	return c.create(ctx, "core_group_create_groups", "groups", courseID, groups)
}

func (c *restClient) create(ctx context.Context, function, key string, courseID int64, items []NewGroup) ([]int64, error) {
	if len(items) == 0 {
		return nil, nil
	}
	p := newParams()
	for i, item := range items {
		prefix := key + "[" + strconv.Itoa(i) + "]"
		p.setInt(prefix+"[courseid]", courseID).
			setStr(prefix+"[name]", item.Name).
			setStr(prefix+"[description]", "").
			setStr(prefix+"[idnumber]", item.IDNumber)
	}
	var created []struct {
		ID int64 `json:"id"`
	}
	if err := c.call(ctx, function, p, &created); err != nil {
		return nil, err
	}
	if len(created) != len(items) {
		return nil, fmt.Errorf("moodle %s returned %d ids for %d items", function, len(created), len(items))
	}
	ids := make([]int64, len(created))
	for i, cr := range created {
		ids[i] = cr.ID
	}
	return ids, nil
}

// UpdateGroupings renames groupings
func (c *restClient) UpdateGroupings(ctx context.Context, updates []GroupUpdate) error {
	return c.update(ctx, "core_group_update_groupings", "groupings", updates)
}

// UpdateGroups renames groups
func (c *restClient) UpdateGroups(ctx context.Context, updates []GroupUpdate) error {
	return c.update(ctx, "core_group_update_groups", "groups", updates)
}

func (c *restClient) update(ctx context.Context, function, key string, updates []GroupUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	p := newParams()
	for i, u := range updates {
		prefix := key + "[" + strconv.Itoa(i) + "]"
		p.setInt(prefix+"[id]", u.ID).
			setStr(prefix+"[name]", u.Name).
			setStr(prefix+"[idnumber]", u.IDNumber)
	}
	return c.call(ctx, function, p, nil)
}

// AssignGroupsToGrouping puts groups into a grouping
func (c *restClient) AssignGroupsToGrouping(ctx context.Context, groupingID int64, groupIDs []int64) error {
	if len(groupIDs) == 0 {
		return nil
	}
	p := newParams()
	for i, id := range groupIDs {
		prefix := "assignments[" + strconv.Itoa(i) + "]"
		p.setInt(prefix+"[groupingid]", groupingID).setInt(prefix+"[groupid]", id)
	}
	return c.call(ctx, "core_group_assign_grouping", p, nil)
}

// DeleteGroupings deletes groupings. Their groups are left in place.
func (c *restClient) DeleteGroupings(ctx context.Context, groupingIDs []int64) error {
	return c.deleteByID(ctx, "core_group_delete_groupings", "groupingids", groupingIDs)
}

// DeleteGroups deletes groups with their memberships
func (c *restClient) DeleteGroups(ctx context.Context, groupIDs []int64) error {
	return c.deleteByID(ctx, "core_group_delete_groups", "groupids", groupIDs)
}

func (c *restClient) deleteByID(ctx context.Context, function, key string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	p := newParams()
	for i, id := range ids {
		p.setInt(key+"["+strconv.Itoa(i)+"]", id)
	}
	return c.call(ctx, function, p, nil)
}

// AddGroupMembers adds users to groups
func (c *restClient) AddGroupMembers(ctx context.Context, members []GroupMember) error {
	return c.members(ctx, "core_group_add_group_members", members)
}

// RemoveGroupMembers removes users from groups
func (c *restClient) RemoveGroupMembers(ctx context.Context, members []GroupMember) error {
	return c.members(ctx, "core_group_delete_group_members", members)
}

func (c *restClient) members(ctx context.Context, function string, members []GroupMember) error {
	if len(members) == 0 {
		return nil
	}
	p := newParams()
	for i, m := range members {
		prefix := "members[" + strconv.Itoa(i) + "]"
		p.setInt(prefix+"[groupid]", m.GroupID).setInt(prefix+"[userid]", m.UserID)
	}
	return c.call(ctx, function, p, nil)
}
