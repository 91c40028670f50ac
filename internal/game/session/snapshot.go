package session

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/dungeon/internal/game/player"
	"github.com/cory-johannsen/dungeon/internal/game/world"
)

// Snapshot is the serializable form of a session, expressed entirely in
// stable identifiers so it survives world rebuilds: room ref ids and item
// names, never runtime UUIDs.
type Snapshot struct {
	Username    string    `json:"username"`
	Scenario    string    `json:"scenario"`
	CurrentRoom string    `json:"current_room"`
	Visited     []string  `json:"visited"`
	Inventory   []string  `json:"inventory"`
	Score       int       `json:"score"`
	SavedAt     time.Time `json:"saved_at"`
}

// Snapshot captures the session's current state. It holds the command
// lock, so a snapshot never observes a half-applied command.
//
// Postcondition: Returns ErrNoPlayerBound when the session has no player.
func (s *Session) Snapshot() (Snapshot, error) {
	s.Lock()
	defer s.Unlock()

	if s.Player == nil {
		return Snapshot{}, fmt.Errorf("snapshot session %s: %w", s.ID, ErrNoPlayerBound)
	}
	room, err := s.CurrentRoom()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot session %s: %w", s.ID, err)
	}

	snap := Snapshot{
		Username:    s.Player.Name,
		Scenario:    s.World.Scenario.Name,
		CurrentRoom: room.RefID,
		Score:       s.CurrentScore(),
		SavedAt:     time.Now().UTC(),
	}
	for id := range s.World.Graph.VisitedRooms() {
		if r, err := s.World.Graph.Room(id); err == nil {
			snap.Visited = append(snap.Visited, r.RefID)
		}
	}
	for _, it := range s.Player.Items() {
		snap.Inventory = append(snap.Inventory, it.Name)
	}
	return snap, nil
}

// Restore builds a session from a snapshot against a freshly loaded
// world: the player is moved to the saved room, the visited set replayed,
// and every saved inventory item transferred out of whichever room holds
// it. Items the world no longer contains are skipped.
//
// Precondition: w must be a fresh world built from the same world file.
func Restore(w *world.World, snap Snapshot) (*Session, error) {
	p, err := player.New(snap.Username)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	s, err := New(p, w)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}

	room, err := w.Graph.RoomByRef(snap.CurrentRoom)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if err := s.MoveTo(room.ID); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	for _, ref := range snap.Visited {
		if r, err := w.Graph.RoomByRef(ref); err == nil {
			w.Graph.MarkVisited(r.ID)
		}
	}
	for _, name := range snap.Inventory {
		for _, r := range w.Graph.Rooms() {
			if it, err := r.TakeItem(name); err == nil {
				p.Take(it)
				break
			}
		}
	}
	s.AddScore(snap.Score)
	return s, nil
}
