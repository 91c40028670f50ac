// Package session tracks per-player game state: the player's world
// instance, position, and score, keyed by a session token.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/dungeon/internal/game/player"
	"github.com/cory-johannsen/dungeon/internal/game/world"
)

// Session errors.
var (
	ErrNotFound      = errors.New("session not found")
	ErrNoPlayerBound = errors.New("no player bound to session")
)

// Session is one player's running game. Each session owns its own world
// instance so that item pickup and visit tracking never leak between
// players. Hosting layers hold the command lock (Lock/Unlock) for the
// full duration of a command or snapshot so that commands on one
// session never interleave; the field mutex guards individual fields.
type Session struct {
	cmdMu sync.Mutex
	mu    sync.Mutex

	// ID is the session token handed to the client.
	ID uuid.UUID
	// Player is the adventurer bound at login; nil until a game starts.
	Player *player.Player
	// World is this player's private copy of the dungeon.
	World *world.World
	// CurrentRoomID is where the player stands.
	CurrentRoomID uuid.UUID
	// Cells is the precomputed map layout for SVG rendering.
	Cells map[uuid.UUID]world.Point
	// Score accumulates points for pickups and discoveries.
	Score int

	lastSeen time.Time
}

// New creates a session for a freshly built world.
//
// Precondition: w must be non-nil with a valid start room.
// Postcondition: The session starts in the world's start room.
func New(p *player.Player, w *world.World) (*Session, error) {
	cells, err := world.Layout(w.Graph, w.Start.ID)
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	return &Session{
		ID:            uuid.New(),
		Player:        p,
		World:         w,
		CurrentRoomID: w.Start.ID,
		Cells:         cells,
		lastSeen:      time.Now(),
	}, nil
}

// Lock acquires the session's command lock. Exactly one command,
// snapshot, or restore runs on a session at a time; callers hold the
// lock until the whole operation has committed.
func (s *Session) Lock() {
	s.cmdMu.Lock()
}

// Unlock releases the command lock.
func (s *Session) Unlock() {
	s.cmdMu.Unlock()
}

// Touch marks the session as recently used.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
}

// LastSeen returns the time of the last command on this session.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// CurrentRoom returns the room the player stands in.
func (s *Session) CurrentRoom() (*world.Room, error) {
	s.mu.Lock()
	id := s.CurrentRoomID
	s.mu.Unlock()
	return s.World.Graph.Room(id)
}

// MoveTo relocates the player and marks the destination visited.
//
// Precondition: id must be a room in the session's world.
func (s *Session) MoveTo(id uuid.UUID) error {
	if _, err := s.World.Graph.Room(id); err != nil {
		return fmt.Errorf("move player: %w", err)
	}
	s.mu.Lock()
	s.CurrentRoomID = id
	s.mu.Unlock()
	s.World.Graph.MarkVisited(id)
	return nil
}

// AddScore adds points to the session's score and returns the new total.
func (s *Session) AddScore(points int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Score += points
	return s.Score
}

// CurrentScore returns the score.
func (s *Session) CurrentScore() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Score
}

// Restart rebinds the session to a fresh world, keeping the player and
// zeroing the score.
//
// Postcondition: The player stands in the new world's start room.
func (s *Session) Restart(w *world.World) error {
	cells, err := world.Layout(w.Graph, w.Start.ID)
	if err != nil {
		return fmt.Errorf("restart session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.World = w
	s.CurrentRoomID = w.Start.ID
	s.Cells = cells
	s.Score = 0
	s.lastSeen = time.Now()
	return nil
}
