package models

import (
	"errors"
	"fmt"
	"slices"
)

// ErrNoGroups is returned when a group table is built without any groups.
var ErrNoGroups = errors.New("at least one group is required")

// Group is a payer category with a fixed member set.
type Group struct {
	// Name is the identifier used in chat ("A", "flat-2") and on disk.
	Name string

	// Members are the chat user IDs that pay and owe on behalf of the group.
	Members []int64
}

// GroupTable is the ordered, immutable set of configured groups.
type GroupTable struct {
	groups []Group
	byName map[string]int
	byUser map[int64]string
}

// NewGroupTable validates groups and builds the lookup indexes.
// A user may belong to only one group and names must be unique and non-empty.
func NewGroupTable(groups []Group) (*GroupTable, error) {
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}

	t := &GroupTable{
		groups: make([]Group, len(groups)),
		byName: make(map[string]int, len(groups)),
		byUser: make(map[int64]string),
	}
	for i, g := range groups {
		if g.Name == "" {
			return nil, fmt.Errorf("group %d has an empty name", i)
		}
		if _, dup := t.byName[g.Name]; dup {
			return nil, fmt.Errorf("duplicate group name: %s", g.Name)
		}
		for _, id := range g.Members {
			if other, dup := t.byUser[id]; dup {
				return nil, fmt.Errorf("user %d is a member of both %s and %s", id, other, g.Name)
			}
			t.byUser[id] = g.Name
		}
		t.byName[g.Name] = i
		t.groups[i] = Group{Name: g.Name, Members: slices.Clone(g.Members)}
	}
	return t, nil
}

// Names returns the group names in configuration order.
func (t *GroupTable) Names() []string {
	names := make([]string, len(t.groups))
	for i, g := range t.groups {
		names[i] = g.Name
	}
	return names
}

// Len returns the number of configured groups.
func (t *GroupTable) Len() int {
	return len(t.groups)
}

// Has reports whether name is a configured group.
func (t *GroupTable) Has(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// GroupOf returns the group the user belongs to.
func (t *GroupTable) GroupOf(userID int64) (string, bool) {
	name, ok := t.byUser[userID]
	return name, ok
}

// IsMember reports whether the user belongs to any group.
func (t *GroupTable) IsMember(userID int64) bool {
	_, ok := t.byUser[userID]
	return ok
}

// Groups returns a copy of the configured groups.
func (t *GroupTable) Groups() []Group {
	out := make([]Group, len(t.groups))
	for i, g := range t.groups {
		out[i] = Group{Name: g.Name, Members: slices.Clone(g.Members)}
	}
	return out
}
