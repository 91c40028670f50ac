package world

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Graph errors.
var (
	ErrUnknownRoom         = errors.New("unknown room")
	ErrDuplicateConnection = errors.New("connection already exists")
	ErrNotConnected        = errors.New("rooms are not connected")
)

// Graph is the dungeon map: rooms joined by direction-labeled edges.
// Every connection is symmetric, so if A has an east exit to B then B
// has a west exit back to A. All methods are safe for concurrent use.
type Graph struct {
	mu      sync.RWMutex
	rooms   map[uuid.UUID]*Room
	byRef   map[string]*Room
	edges   map[uuid.UUID]map[Direction]uuid.UUID
	visited map[uuid.UUID]bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		rooms:   make(map[uuid.UUID]*Room),
		byRef:   make(map[string]*Room),
		edges:   make(map[uuid.UUID]map[Direction]uuid.UUID),
		visited: make(map[uuid.UUID]bool),
	}
}

// AddRoom registers a room with the graph. Adding a room whose runtime ID
// is already present replaces the previous entry and leaves its edges in
// place; adding a room that reuses a ref id rebinds the ref lookup.
func (g *Graph) AddRoom(r *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rooms[r.ID] = r
	g.byRef[r.RefID] = r
}

// Room returns the room with the given runtime ID.
//
// Postcondition: Returns ErrUnknownRoom when the ID is not in the graph.
func (g *Graph) Room(id uuid.UUID) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, ErrUnknownRoom)
	}
	return r, nil
}

// RoomByRef returns the room with the given stable ref id.
func (g *Graph) RoomByRef(ref string) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.byRef[ref]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", ref, ErrUnknownRoom)
	}
	return r, nil
}

// Rooms returns a snapshot of every room in the graph.
func (g *Graph) Rooms() []*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}

// Len returns the number of rooms in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Connect joins room a to room b in the given direction and b back to a
// in the opposite direction, atomically.
//
// Precondition: Both rooms must already be in the graph.
// Postcondition: Either both half-edges exist or neither does. Returns
// ErrDuplicateConnection when either endpoint already has an exit in the
// affected direction, ErrUnknownRoom when an endpoint is missing.
func (g *Graph) Connect(a, b uuid.UUID, dir Direction) error {
	if !dir.Valid() {
		return fmt.Errorf("connect: invalid direction %q", dir)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.rooms[a]; !ok {
		return fmt.Errorf("connect %s: %w", a, ErrUnknownRoom)
	}
	if _, ok := g.rooms[b]; !ok {
		return fmt.Errorf("connect %s: %w", b, ErrUnknownRoom)
	}
	if _, ok := g.edges[a][dir]; ok {
		return fmt.Errorf("connect %s %s: %w", a, dir, ErrDuplicateConnection)
	}
	if _, ok := g.edges[b][dir.Opposite()]; ok {
		return fmt.Errorf("connect %s %s: %w", b, dir.Opposite(), ErrDuplicateConnection)
	}
	if g.edges[a] == nil {
		g.edges[a] = make(map[Direction]uuid.UUID)
	}
	if g.edges[b] == nil {
		g.edges[b] = make(map[Direction]uuid.UUID)
	}
	g.edges[a][dir] = b
	g.edges[b][dir.Opposite()] = a
	return nil
}

// Disconnect removes the connection between rooms a and b, together with
// its mirror half-edge.
//
// Postcondition: Returns ErrNotConnected when no such connection exists.
func (g *Graph) Disconnect(a, b uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for dir, target := range g.edges[a] {
		if target == b {
			delete(g.edges[a], dir)
			delete(g.edges[b], dir.Opposite())
			return nil
		}
	}
	return fmt.Errorf("disconnect %s %s: %w", a, b, ErrNotConnected)
}

// DisconnectDirection removes the connection leaving room a in the given
// direction, together with its mirror half-edge.
//
// Postcondition: Returns ErrNotConnected when a has no exit that way.
func (g *Graph) DisconnectDirection(a uuid.UUID, dir Direction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.edges[a][dir]
	if !ok {
		return fmt.Errorf("disconnect %s %s: %w", a, dir, ErrNotConnected)
	}
	delete(g.edges[a], dir)
	delete(g.edges[b], dir.Opposite())
	return nil
}

// ConnectedRoom returns the room reached by leaving a in the given
// direction. A registered room with no exit that way is not an error:
// the result is (nil, nil).
//
// Postcondition: Returns ErrUnknownRoom when a is not in the graph.
func (g *Graph) ConnectedRoom(a uuid.UUID, dir Direction) (*Room, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.rooms[a]; !ok {
		return nil, fmt.Errorf("room %s: %w", a, ErrUnknownRoom)
	}
	b, ok := g.edges[a][dir]
	if !ok {
		return nil, nil
	}
	return g.rooms[b], nil
}

// ConnectedRooms returns every exit from room a, keyed by direction.
func (g *Graph) ConnectedRooms(a uuid.UUID) map[Direction]*Room {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[Direction]*Room, len(g.edges[a]))
	for dir, id := range g.edges[a] {
		out[dir] = g.rooms[id]
	}
	return out
}

// MarkVisited records that the player has been in the room.
func (g *Graph) MarkVisited(id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.visited[id] = true
}

// IsVisited reports whether the room has been visited.
func (g *Graph) IsVisited(id uuid.UUID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.visited[id]
}

// VisitedRooms returns the set of visited room IDs.
func (g *Graph) VisitedRooms() map[uuid.UUID]bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[uuid.UUID]bool, len(g.visited))
	for id := range g.visited {
		out[id] = true
	}
	return out
}

// RoomDistance pairs a room with its hop distance from a BFS start.
type RoomDistance struct {
	Room     *Room
	Distance int
}

// RoomsWithinDistance returns every room reachable from start in at most
// distance hops, excluding start itself, each paired with its hop count.
// Traversal is breadth-first; within one hop level, neighbors are
// discovered in fixed direction order, so the result order is
// deterministic.
//
// Precondition: distance must be >= 0.
// Postcondition: Returns ErrUnknownRoom when start is not in the graph.
func (g *Graph) RoomsWithinDistance(start uuid.UUID, distance int) ([]RoomDistance, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.rooms[start]; !ok {
		return nil, fmt.Errorf("rooms within %d of %s: %w", distance, start, ErrUnknownRoom)
	}

	seen := map[uuid.UUID]bool{start: true}
	frontier := []uuid.UUID{start}
	var found []RoomDistance
	for hop := 1; hop <= distance && len(frontier) > 0; hop++ {
		var next []uuid.UUID
		for _, id := range frontier {
			for _, dir := range Directions {
				neighbor, ok := g.edges[id][dir]
				if !ok || seen[neighbor] {
					continue
				}
				seen[neighbor] = true
				found = append(found, RoomDistance{Room: g.rooms[neighbor], Distance: hop})
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return found, nil
}

// ExitsNarration renders the exits of a room as prose, one sentence per
// exit in fixed direction order.
func (g *Graph) ExitsNarration(id uuid.UUID) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	exits := g.edges[id]
	if len(exits) == 0 {
		return "There are no exits from this room."
	}
	var sentences []string
	for _, dir := range Directions {
		target, ok := exits[dir]
		if !ok {
			continue
		}
		sentences = append(sentences, fmt.Sprintf("There is a %s to the %s", g.rooms[target].TypeName(), dir))
	}
	return strings.Join(sentences, ". ") + "."
}

// ExitDirections returns the directions leaving a room in fixed order.
func (g *Graph) ExitDirections(id uuid.UUID) []Direction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var dirs []Direction
	for _, dir := range Directions {
		if _, ok := g.edges[id][dir]; ok {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}
