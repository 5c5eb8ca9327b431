package groupsync

import (
	"fmt"
	"slices"

	"github.com/coursesync/sisu-moodle-sync/internal/moodle"
	"github.com/coursesync/sisu-moodle-sync/internal/sisu"
)

// Options controls how registry names are chosen
type Options struct {
	// Languages is the preference order for localized names
	Languages []string
}

// Members maps registry person ids to Moodle user ids. Persons missing from
// the map have no Moodle account.
type Members map[string]int64

// Eligible reports whether a study group set is synchronized. A set with a
// single sub-group is a registry artifact and is ignored.
func Eligible(set sisu.StudyGroupSet) bool {
	return len(set.SubGroups) > 1
}

// Diff computes the change tree that makes the Moodle groupings match the
// registry study group sets. ungrouped holds course groups that belong to no
// grouping: a sync-owned one is assigned back to the grouping of its
// sub-group, since Moodle rejects a second group with its id number.
// It does not touch either system.
func Diff(
	sets []sisu.StudyGroupSet,
	groupings []moodle.Grouping,
	ungrouped []moodle.Group,
	members Members,
	opts Options,
) []GroupingChange {
	eligible := make(map[string]sisu.StudyGroupSet)
	ignored := make(map[string]bool)
	var order []string
	for _, set := range sets {
		if !Eligible(set) {
			ignored[set.LocalID] = true
			continue
		}
		if _, dup := eligible[set.LocalID]; dup {
			continue
		}
		eligible[set.LocalID] = set
		order = append(order, set.LocalID)
	}

	names := newNamer()
	proposed := make(map[string]string, len(order))
	for _, id := range order {
		proposed[id] = names.next(eligible[id].Name.Pick(opts.Languages))
	}

	matched := make(map[string]moodle.Grouping)
	var unmatched []moodle.Grouping
	for _, gr := range groupings {
		key, managed := managedKey(gr.IDNumber)
		switch {
		case managed && ignored[key]:
			continue
		case managed:
			if _, ok := eligible[key]; ok {
				if _, dup := matched[key]; !dup {
					matched[key] = gr
					continue
				}
			}
		}
		unmatched = append(unmatched, gr)
	}

	loose := newLooseGroups(ungrouped)
	changes := make([]GroupingChange, 0, len(order)+len(unmatched))
	for _, id := range order {
		set := eligible[id]
		change := GroupingChange{
			RegistryID:   id,
			ProposedName: proposed[id],
			IDNumber:     idNumber(id),
			Status:       StatusNotApplied,
		}
		if gr, ok := matched[id]; ok {
			change.Type = ChangeKeep
			if gr.Name != change.ProposedName {
				change.Type = ChangeUpdate
			}
			change.MoodleID = gr.ID
			change.CurrentName = gr.Name
			change.Groups = diffGroups(set.SubGroups, gr.Groups, loose, members, opts)
		} else {
			change.Type = ChangeCreate
			change.Groups = diffGroups(set.SubGroups, nil, loose, members, opts)
		}
		changes = append(changes, change)
	}

	for _, gr := range unmatched {
		change := GroupingChange{
			MoodleID:    gr.ID,
			CurrentName: gr.Name,
			IDNumber:    gr.IDNumber,
			Status:      StatusNotApplied,
		}
		if key, managed := managedKey(gr.IDNumber); managed {
			change.Type = ChangeDelete
			change.RegistryID = key
			change.Groups = deleteGroups(gr.Groups)
		} else {
			change.Type = ChangeDetached
			change.Groups = detachGroups(gr.Groups, allSubGroups(sets), members, opts)
		}
		changes = append(changes, change)
	}
	return changes
}

// diffGroups matches the sub-groups of a synchronized set with the groups of
// its grouping, then with the sync-owned groups outside any grouping.
// Cancelled sub-groups count as absent.
func diffGroups(
	subGroups []sisu.StudySubGroup,
	groups []moodle.Group,
	loose looseGroups,
	members Members,
	opts Options,
) []GroupChange {
	active := make(map[string]sisu.StudySubGroup)
	var order []string
	for _, sg := range subGroups {
		if sg.Cancelled {
			continue
		}
		if _, dup := active[sg.ID]; dup {
			continue
		}
		active[sg.ID] = sg
		order = append(order, sg.ID)
	}

	names := newNamer()
	proposed := make(map[string]string, len(order))
	for _, id := range order {
		proposed[id] = names.next(active[id].Name.Pick(opts.Languages))
	}

	matched := make(map[string]moodle.Group)
	var unmatched []moodle.Group
	for _, g := range groups {
		if key, managed := managedKey(g.IDNumber); managed {
			if _, ok := active[key]; ok {
				if _, dup := matched[key]; !dup {
					matched[key] = g
					continue
				}
			}
		}
		unmatched = append(unmatched, g)
	}

	changes := make([]GroupChange, 0, len(order)+len(unmatched))
	for _, id := range order {
		sg := active[id]
		change := GroupChange{
			RegistryID:   id,
			ProposedName: proposed[id],
			IDNumber:     idNumber(id),
			Status:       StatusNotApplied,
		}
		g, ok := matched[id]
		if !ok {
			g, ok = loose.take(id)
			change.Assign = ok
		}
		var current []int64
		if ok {
			change.Type = ChangeKeep
			if g.Name != change.ProposedName {
				change.Type = ChangeUpdate
			}
			change.MoodleID = g.ID
			change.CurrentName = g.Name
			current = g.MemberIDs
		} else {
			change.Type = ChangeCreate
		}
		change.Members, change.Errors = diffMembers(sg.MemberIDs, current, members, ChangeDelete)
		changes = append(changes, change)
	}

	for _, g := range unmatched {
		if _, managed := managedKey(g.IDNumber); managed {
			changes = append(changes, deleteGroup(g))
			continue
		}
		changes = append(changes, detachGroup(g, subGroups, members, opts))
	}
	return changes
}

// looseGroups indexes sync-owned groups outside any grouping by sub-group id.
// A group is handed out once.
type looseGroups map[string]moodle.Group

func newLooseGroups(groups []moodle.Group) looseGroups {
	out := make(looseGroups)
	for _, g := range groups {
		key, managed := managedKey(g.IDNumber)
		if !managed {
			continue
		}
		if _, dup := out[key]; !dup {
			out[key] = g
		}
	}
	return out
}

func (l looseGroups) take(subGroupID string) (moodle.Group, bool) {
	g, ok := l[subGroupID]
	if ok {
		delete(l, subGroupID)
	}
	return g, ok
}

// deleteGroups cascades a grouping deletion. Groups not owned by the sync
// are left in place.
func deleteGroups(groups []moodle.Group) []GroupChange {
	changes := make([]GroupChange, 0, len(groups))
	for _, g := range groups {
		if _, managed := managedKey(g.IDNumber); managed {
			changes = append(changes, deleteGroup(g))
			continue
		}
		changes = append(changes, GroupChange{
			Type:        ChangeDetached,
			MoodleID:    g.ID,
			CurrentName: g.Name,
			IDNumber:    g.IDNumber,
			Status:      StatusNotApplied,
			Members:     keepMembers(g.MemberIDs, ChangeDetached),
		})
	}
	return changes
}

func deleteGroup(g moodle.Group) GroupChange {
	change := GroupChange{
		Type:        ChangeDelete,
		MoodleID:    g.ID,
		CurrentName: g.Name,
		IDNumber:    g.IDNumber,
		Status:      StatusNotApplied,
		Members:     keepMembers(g.MemberIDs, ChangeDelete),
	}
	if key, ok := managedKey(g.IDNumber); ok {
		change.RegistryID = key
	}
	return change
}

func detachGroups(groups []moodle.Group, subGroups []sisu.StudySubGroup, members Members, opts Options) []GroupChange {
	changes := make([]GroupChange, 0, len(groups))
	for _, g := range groups {
		changes = append(changes, detachGroup(g, subGroups, members, opts))
	}
	return changes
}

// detachGroup reports a group the sync does not own. When the group can be
// related to a registry sub-group, by id number or by name, its membership
// drift is listed as detached changes.
func detachGroup(g moodle.Group, subGroups []sisu.StudySubGroup, members Members, opts Options) GroupChange {
	change := GroupChange{
		Type:        ChangeDetached,
		MoodleID:    g.ID,
		CurrentName: g.Name,
		IDNumber:    g.IDNumber,
		Status:      StatusNotApplied,
	}
	sg, ok := relatedSubGroup(g, subGroups, opts)
	if !ok {
		change.Members = keepMembers(g.MemberIDs, ChangeKeep)
		return change
	}
	change.RegistryID = sg.ID
	change.Members, _ = diffMembers(sg.MemberIDs, g.MemberIDs, members, ChangeDetached)
	for i := range change.Members {
		if change.Members[i].Type == ChangeCreate {
			change.Members[i].Type = ChangeDetached
		}
	}
	return change
}

func relatedSubGroup(g moodle.Group, subGroups []sisu.StudySubGroup, opts Options) (sisu.StudySubGroup, bool) {
	if key, ok := managedKey(g.IDNumber); ok {
		for _, sg := range subGroups {
			if sg.ID == key && !sg.Cancelled {
				return sg, true
			}
		}
	}
	for _, sg := range subGroups {
		if !sg.Cancelled && sg.Name.Pick(opts.Languages) == g.Name {
			return sg, true
		}
	}
	return sisu.StudySubGroup{}, false
}

// diffMembers compares registry members with current Moodle members. Moodle
// members missing from the registry get the extra change type. Registry
// members without a Moodle account are reported as errors.
func diffMembers(personIDs []string, current []int64, members Members, extra ChangeType) ([]MembershipChange, []string) {
	var (
		changes []MembershipChange
		errs    []string
	)
	existing := make(map[int64]bool, len(current))
	for _, id := range current {
		existing[id] = true
	}

	desired := make(map[int64]bool, len(personIDs))
	for _, personID := range personIDs {
		userID, ok := members[personID]
		if !ok {
			errs = append(errs, fmt.Sprintf("person %s has no Moodle account", personID))
			continue
		}
		if desired[userID] {
			continue
		}
		desired[userID] = true
		change := MembershipChange{
			Type:         ChangeCreate,
			MoodleUserID: userID,
			PersonID:     personID,
			Status:       StatusNotApplied,
		}
		if existing[userID] {
			change.Type = ChangeKeep
		}
		changes = append(changes, change)
	}

	for _, id := range sortedIDs(current) {
		if desired[id] {
			continue
		}
		changes = append(changes, MembershipChange{Type: extra, MoodleUserID: id, Status: StatusNotApplied})
	}
	return changes, errs
}

func keepMembers(ids []int64, typ ChangeType) []MembershipChange {
	changes := make([]MembershipChange, 0, len(ids))
	for _, id := range sortedIDs(ids) {
		changes = append(changes, MembershipChange{Type: typ, MoodleUserID: id, Status: StatusNotApplied})
	}
	return changes
}

func allSubGroups(sets []sisu.StudyGroupSet) []sisu.StudySubGroup {
	var out []sisu.StudySubGroup
	for _, set := range sets {
		out = append(out, set.SubGroups...)
	}
	return out
}

func sortedIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// namer disambiguates sibling names with a running counter
type namer struct {
	seen map[string]int
}

func newNamer() *namer {
	return &namer{seen: make(map[string]int)}
}

func (n *namer) next(name string) string {
	n.seen[name]++
	if c := n.seen[name]; c > 1 {
		candidate := fmt.Sprintf("%s (%d)", name, c)
		// a registry name may already look like a disambiguated one
		for n.seen[candidate] > 0 {
			c++
			candidate = fmt.Sprintf("%s (%d)", name, c)
		}
		n.seen[name] = c
		n.seen[candidate]++
		return candidate
	}
	return name
}
