// Package world models the dungeon as a graph of rooms joined by
// direction-labeled connections, and renders the explored portion of
// that graph as an SVG map.
package world

import "strings"

// Direction labels a connection between two rooms.
type Direction string

// The six traversal directions.
const (
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
	DirectionNorth Direction = "north"
	DirectionSouth Direction = "south"
	DirectionEast  Direction = "east"
	DirectionWest  Direction = "west"
)

// Directions lists every direction in declaration order.
var Directions = []Direction{
	DirectionUp,
	DirectionDown,
	DirectionNorth,
	DirectionSouth,
	DirectionEast,
	DirectionWest,
}

// Opposite returns the reverse of d.
//
// Postcondition: d.Opposite().Opposite() == d for every valid direction.
func (d Direction) Opposite() Direction {
	switch d {
	case DirectionUp:
		return DirectionDown
	case DirectionDown:
		return DirectionUp
	case DirectionNorth:
		return DirectionSouth
	case DirectionSouth:
		return DirectionNorth
	case DirectionEast:
		return DirectionWest
	case DirectionWest:
		return DirectionEast
	}
	return d
}

// Valid reports whether d is one of the six traversal directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionNorth, DirectionSouth, DirectionEast, DirectionWest:
		return true
	}
	return false
}

// DirectionForToken matches a single token against the direction names.
// Matching is exact after lowercasing; unlike action lookup there is no
// prefix matching, so "nor" is not north.
//
// Postcondition: Returns (direction, true) on an exact match, or ("", false).
func DirectionForToken(token string) (Direction, bool) {
	d := Direction(strings.ToLower(strings.TrimSpace(token)))
	if d.Valid() {
		return d, true
	}
	return "", false
}

// FirstDirection scans tokens in order and returns the first one that
// names a direction.
func FirstDirection(tokens []string) (Direction, bool) {
	for _, t := range tokens {
		if d, ok := DirectionForToken(t); ok {
			return d, true
		}
	}
	return "", false
}
