// Package rooms keeps the membership of named broadcast groups.
//
// A room exists only while it has members: joining creates it, removing the
// last member deletes it. A Table is not safe for concurrent use; the hub owns
// it from its single event loop.
package rooms

import (
	"strconv"

	"github.com/samber/lo"
)

// UserPrefix is prepended to a user id to form that user's room key.
const UserPrefix = "user_"

// UserKey returns the room key for a user id, e.g. "user_42".
func UserKey(userID int64) string {
	return UserPrefix + strconv.FormatInt(userID, 10)
}

// Table maps room keys to member sets and members back to their rooms.
type Table[M comparable] struct {
	rooms       map[string]map[M]struct{}
	memberships map[M]map[string]struct{}
}

// New returns an empty Table.
func New[M comparable]() *Table[M] {
	return &Table[M]{
		rooms:       make(map[string]map[M]struct{}),
		memberships: make(map[M]map[string]struct{}),
	}
}

// Join adds m to the room key. It reports whether m was newly added.
func (t *Table[M]) Join(key string, m M) bool {
	members, ok := t.rooms[key]
	if !ok {
		members = make(map[M]struct{})
		t.rooms[key] = members
	}
	if _, exists := members[m]; exists {
		return false
	}
	members[m] = struct{}{}

	joined, ok := t.memberships[m]
	if !ok {
		joined = make(map[string]struct{})
		t.memberships[m] = joined
	}
	joined[key] = struct{}{}
	return true
}

// LeaveAll removes m from every room and returns the keys it left.
// Calling it for an unknown member is a no-op.
func (t *Table[M]) LeaveAll(m M) []string {
	joined, ok := t.memberships[m]
	if !ok {
		return nil
	}
	delete(t.memberships, m)

	for key := range joined {
		members := t.rooms[key]
		delete(members, m)
		if len(members) == 0 {
			delete(t.rooms, key)
		}
	}
	return lo.Keys(joined)
}

// Members returns a snapshot of the members of key. An unknown key yields nil.
func (t *Table[M]) Members(key string) []M {
	members, ok := t.rooms[key]
	if !ok {
		return nil
	}
	return lo.Keys(members)
}

// RoomsOf returns the keys m currently belongs to.
func (t *Table[M]) RoomsOf(m M) []string {
	return lo.Keys(t.memberships[m])
}

// Size returns the number of members in key.
func (t *Table[M]) Size(key string) int {
	return len(t.rooms[key])
}

// Len returns the number of non-empty rooms.
func (t *Table[M]) Len() int {
	return len(t.rooms)
}
