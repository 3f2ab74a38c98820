// Package presence tracks which room each live connection is in.
package presence

import "sync"

// JoinResult describes the occupancy changes caused by a Join.
type JoinResult struct {
	RoomID    uint
	Occupancy int

	// Moved is true when the connection left a different room to join this
	// one. PreviousRoomID and PreviousOccupancy are only set in that case.
	Moved             bool
	PreviousRoomID    uint
	PreviousOccupancy int
}

// LeaveResult is the room a connection left and its remaining occupancy.
type LeaveResult struct {
	RoomID    uint
	Occupancy int
}

// Tracker keeps two mirrored indexes under one lock: connection to room and
// room to member set. Empty member sets are removed.
type Tracker struct {
	mu      sync.RWMutex
	byConn  map[string]uint
	members map[uint]map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		byConn:  make(map[string]uint),
		members: make(map[uint]map[string]struct{}),
	}
}

// Join moves connID into roomID, leaving its previous room first.
// Joining the room it is already in changes nothing.
func (t *Tracker) Join(connID string, roomID uint) JoinResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, had := t.byConn[connID]
	if had && prev == roomID {
		return JoinResult{RoomID: roomID, Occupancy: len(t.members[roomID])}
	}

	res := JoinResult{RoomID: roomID}
	if had {
		res.Moved = true
		res.PreviousRoomID = prev
		res.PreviousOccupancy = t.removeLocked(connID, prev)
	}

	set, ok := t.members[roomID]
	if !ok {
		set = make(map[string]struct{})
		t.members[roomID] = set
	}
	set[connID] = struct{}{}
	t.byConn[connID] = roomID
	res.Occupancy = len(set)

	return res
}

// Leave removes connID from its room. ok is false when it was in no room.
func (t *Tracker) Leave(connID string) (LeaveResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	roomID, had := t.byConn[connID]
	if !had {
		return LeaveResult{}, false
	}
	return LeaveResult{RoomID: roomID, Occupancy: t.removeLocked(connID, roomID)}, true
}

func (t *Tracker) removeLocked(connID string, roomID uint) int {
	delete(t.byConn, connID)
	set := t.members[roomID]
	delete(set, connID)
	if len(set) == 0 {
		delete(t.members, roomID)
		return 0
	}
	return len(set)
}

// Occupancy returns the member count of roomID, 0 when untracked.
func (t *Tracker) Occupancy(roomID uint) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.members[roomID])
}

// RoomOf returns the room connID is in.
func (t *Tracker) RoomOf(connID string) (uint, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	roomID, ok := t.byConn[connID]
	return roomID, ok
}

// Snapshot copies the occupancy of every non-empty room.
func (t *Tracker) Snapshot() map[uint]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[uint]int, len(t.members))
	for roomID, set := range t.members {
		out[roomID] = len(set)
	}
	return out
}
