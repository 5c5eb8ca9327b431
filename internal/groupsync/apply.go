package groupsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
)

const errParentNotApplied = "parent change was not applied"

// Apply executes the change tree against Moodle and records the outcome on
// every node. Group deletions are issued before the deletion of their
// grouping and groups are created before their members are added. A failed
// node fails its dependent descendants; independent siblings still apply.
func Apply(ctx context.Context, client moodle.Client, courseID int64, changes []GroupingChange) {
	for i := range changes {
		gr := &changes[i]
		switch gr.Type {
		case ChangeDelete:
			applyGroupingDelete(ctx, client, gr)
		case ChangeCreate:
			ids, err := client.CreateGroupings(ctx, courseID, []moodle.NewGroup{{Name: gr.ProposedName, IDNumber: gr.IDNumber}})
			if err == nil && len(ids) != 1 {
				err = fmt.Errorf("moodle returned %d ids for one grouping", len(ids))
			}
			if err != nil {
				fail(&gr.Status, &gr.Errors, err)
				failGroups(gr.Groups)
				continue
			}
			gr.MoodleID = ids[0]
			gr.Status = StatusApplied
			applyGroups(ctx, client, courseID, gr)
		case ChangeUpdate:
			err := client.UpdateGroupings(ctx, []moodle.GroupUpdate{{ID: gr.MoodleID, Name: gr.ProposedName, IDNumber: gr.IDNumber}})
			if err != nil {
				fail(&gr.Status, &gr.Errors, err)
			} else {
				gr.Status = StatusApplied
			}
			applyGroups(ctx, client, courseID, gr)
		case ChangeKeep:
			applyGroups(ctx, client, courseID, gr)
		case ChangeDetached:
			// not owned by the sync
		}
	}
}

func applyGroupingDelete(ctx context.Context, client moodle.Client, gr *GroupingChange) {
	var ids []int64
	for _, g := range gr.Groups {
		if g.Type == ChangeDelete {
			ids = append(ids, g.MoodleID)
		}
	}
	if len(ids) > 0 {
		if err := client.DeleteGroups(ctx, ids); err != nil {
			for i := range gr.Groups {
				if gr.Groups[i].Type == ChangeDelete {
					fail(&gr.Groups[i].Status, &gr.Groups[i].Errors, err)
				}
			}
			fail(&gr.Status, &gr.Errors, fmt.Errorf("groups of the grouping could not be deleted: %w", err))
			return
		}
		markDeleted(gr.Groups)
	}

	if err := client.DeleteGroupings(ctx, []int64{gr.MoodleID}); err != nil {
		fail(&gr.Status, &gr.Errors, err)
		return
	}
	gr.Status = StatusApplied
	slog.Debug("Deleted grouping", "grouping_id", gr.MoodleID, "id_number", gr.IDNumber)
}

// applyGroups applies the group changes of a grouping that exists in Moodle
func applyGroups(ctx context.Context, client moodle.Client, courseID int64, gr *GroupingChange) {
	var deleteIDs []int64
	for _, g := range gr.Groups {
		if g.Type == ChangeDelete {
			deleteIDs = append(deleteIDs, g.MoodleID)
		}
	}
	if len(deleteIDs) > 0 {
		err := client.DeleteGroups(ctx, deleteIDs)
		for i := range gr.Groups {
			g := &gr.Groups[i]
			if g.Type != ChangeDelete {
				continue
			}
			if err != nil {
				fail(&g.Status, &g.Errors, err)
				continue
			}
			g.Status = StatusApplied
			markApplied(g.Members)
		}
	}

	for i := range gr.Groups {
		g := &gr.Groups[i]
		switch g.Type {
		case ChangeCreate:
			ids, err := client.CreateGroups(ctx, courseID, []moodle.NewGroup{{Name: g.ProposedName, IDNumber: g.IDNumber}})
			if err == nil && len(ids) != 1 {
				err = fmt.Errorf("moodle returned %d ids for one group", len(ids))
			}
			if err != nil {
				fail(&g.Status, &g.Errors, err)
				failMembers(g.Members)
				continue
			}
			g.MoodleID = ids[0]
			g.Status = StatusApplied
		case ChangeUpdate:
			err := client.UpdateGroups(ctx, []moodle.GroupUpdate{{ID: g.MoodleID, Name: g.ProposedName, IDNumber: g.IDNumber}})
			if err != nil {
				fail(&g.Status, &g.Errors, err)
			} else {
				g.Status = StatusApplied
			}
		}
	}

	// new groups and groups found outside the grouping join it in one call
	var joining []int
	for i, g := range gr.Groups {
		if g.Assign || (g.Type == ChangeCreate && g.Status == StatusApplied) {
			joining = append(joining, i)
		}
	}
	if len(joining) > 0 {
		ids := make([]int64, 0, len(joining))
		for _, i := range joining {
			ids = append(ids, gr.Groups[i].MoodleID)
		}
		err := client.AssignGroupsToGrouping(ctx, gr.MoodleID, ids)
		for _, i := range joining {
			g := &gr.Groups[i]
			switch {
			case err != nil:
				fail(&g.Status, &g.Errors, fmt.Errorf("group could not be added to grouping: %w", err))
			case g.Status == StatusNotApplied:
				g.Status = StatusApplied
			}
		}
	}

	for i := range gr.Groups {
		g := &gr.Groups[i]
		if g.Type == ChangeDelete || g.Type == ChangeDetached || g.MoodleID == 0 {
			continue
		}
		applyMembers(ctx, client, g)
	}
}

func applyMembers(ctx context.Context, client moodle.Client, g *GroupChange) {
	var add, remove []moodle.GroupMember
	for _, m := range g.Members {
		switch m.Type {
		case ChangeCreate:
			add = append(add, moodle.GroupMember{GroupID: g.MoodleID, UserID: m.MoodleUserID})
		case ChangeDelete:
			remove = append(remove, moodle.GroupMember{GroupID: g.MoodleID, UserID: m.MoodleUserID})
		}
	}
	if len(add) > 0 {
		setMemberStatus(g.Members, ChangeCreate, client.AddGroupMembers(ctx, add))
	}
	if len(remove) > 0 {
		setMemberStatus(g.Members, ChangeDelete, client.RemoveGroupMembers(ctx, remove))
	}
}

func setMemberStatus(members []MembershipChange, typ ChangeType, err error) {
	for i := range members {
		if members[i].Type != typ {
			continue
		}
		if err != nil {
			fail(&members[i].Status, &members[i].Errors, err)
			continue
		}
		members[i].Status = StatusApplied
	}
}

func markDeleted(groups []GroupChange) {
	for i := range groups {
		if groups[i].Type == ChangeDelete {
			groups[i].Status = StatusApplied
			markApplied(groups[i].Members)
		}
	}
}

func markApplied(members []MembershipChange) {
	for i := range members {
		if members[i].Type == ChangeDelete {
			members[i].Status = StatusApplied
		}
	}
}

func failGroups(groups []GroupChange) {
	for i := range groups {
		g := &groups[i]
		if g.Type == ChangeCreate || g.Assign {
			g.Status = StatusFailed
			g.Errors = append(g.Errors, errParentNotApplied)
		}
		failMembers(g.Members)
	}
}

func failMembers(members []MembershipChange) {
	for i := range members {
		if members[i].Type == ChangeCreate {
			members[i].Status = StatusFailed
			members[i].Errors = append(members[i].Errors, errParentNotApplied)
		}
	}
}

func fail(status *ApplyStatus, errs *[]string, err error) {
	*status = StatusFailed
	*errs = append(*errs, err.Error())
}
