package world

import (
	"fmt"

	"github.com/google/uuid"
)

// Point is a cell in the map layout grid.
type Point struct {
	X int
	Y int
}

// offsets maps each compass direction to its grid displacement. North
// decreases Y so the map renders with north at the top. Up and down have
// no natural cell on a planar grid, so they are absent and their rooms
// fall through to collision probing.
var offsets = map[Direction]Point{
	DirectionNorth: {X: 0, Y: -1},
	DirectionSouth: {X: 0, Y: 1},
	DirectionEast:  {X: 1, Y: 0},
	DirectionWest:  {X: -1, Y: 0},
}

// probes are the candidate displacements tried when a room's natural cell
// is already taken, in deterministic order.
var probes = []Point{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// Layout assigns a grid cell to every room reachable from start, walking
// the graph breadth-first and extending from each room in compass
// direction order. Rooms whose natural cell is occupied try four nearby
// cells; if all are taken they are packed into the first free cell on an
// expanding scan. The result is deterministic for a given graph.
//
// Precondition: start must be a room in the graph.
// Postcondition: Every reachable room has a unique cell; start is at (0,0).
func Layout(g *Graph, start uuid.UUID) (map[uuid.UUID]Point, error) {
	if _, err := g.Room(start); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	cells := make(map[uuid.UUID]Point)
	taken := make(map[Point]uuid.UUID)
	place := func(id uuid.UUID, p Point) {
		cells[id] = p
		taken[p] = id
	}
	place(start, Point{})

	queue := []uuid.UUID{start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		at := cells[id]

		for _, dir := range Directions {
			neighbor, err := g.ConnectedRoom(id, dir)
			if err != nil || neighbor == nil {
				continue
			}
			if _, done := cells[neighbor.ID]; done {
				continue
			}
			place(neighbor.ID, findCell(at, dir, taken))
			queue = append(queue, neighbor.ID)
		}
	}
	return cells, nil
}

func findCell(from Point, dir Direction, taken map[Point]uuid.UUID) Point {
	off := offsets[dir]
	want := Point{X: from.X + off.X, Y: from.Y + off.Y}
	if _, busy := taken[want]; !busy {
		return want
	}
	for _, p := range probes {
		cand := Point{X: want.X + p.X, Y: want.Y + p.Y}
		if _, busy := taken[cand]; !busy {
			return cand
		}
	}
	// Dense neighborhood: pack into the first free cell on an expanding
	// square scan around the wanted cell.
	for ring := 2; ; ring++ {
		for dy := -ring; dy <= ring; dy++ {
			for dx := -ring; dx <= ring; dx++ {
				if dx > -ring && dx < ring && dy > -ring && dy < ring {
					continue
				}
				cand := Point{X: want.X + dx, Y: want.Y + dy}
				if _, busy := taken[cand]; !busy {
					return cand
				}
			}
		}
	}
}
