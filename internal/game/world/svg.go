package world

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	svgCell    = 120
	svgRoom    = 90
	svgPadding = 30
)

// RenderMapSVG draws the explored portion of the graph as an SVG document.
// Only visited rooms are drawn; the current room is highlighted. The
// output is a pure function of the graph, its visited set, and the
// current room, so identical inputs render byte-identical documents.
//
// Postcondition: Returns a complete standalone SVG document.
func RenderMapSVG(g *Graph, cells map[uuid.UUID]Point, current uuid.UUID) string {
	visited := g.VisitedRooms()
	visited[current] = true

	var ids []uuid.UUID
	minX, minY, maxX, maxY := 0, 0, 0, 0
	for id := range visited {
		p, ok := cells[id]
		if !ok {
			continue
		}
		ids = append(ids, id)
		if p.X < minX {
			minX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	width := (maxX-minX+1)*svgCell + 2*svgPadding
	height := (maxY-minY+1)*svgCell + 2*svgPadding
	center := func(p Point) (int, int) {
		x := (p.X-minX)*svgCell + svgPadding + svgCell/2
		y := (p.Y-minY)*svgCell + svgPadding + svgCell/2
		return x, y
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&b, `  <rect width="%d" height="%d" fill="#1a1a2e"/>`+"\n", width, height)

	// Edges first so room boxes draw over them. Each symmetric pair is
	// drawn once, from the lexically smaller endpoint.
	for _, id := range ids {
		ax, ay := center(cells[id])
		for _, dir := range Directions {
			other, err := g.ConnectedRoom(id, dir)
			if err != nil || other == nil || !visited[other.ID] {
				continue
			}
			if id.String() > other.ID.String() {
				continue
			}
			op, ok := cells[other.ID]
			if !ok {
				continue
			}
			bx, by := center(op)
			fmt.Fprintf(&b, `  <line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#6b7280" stroke-width="4"/>`+"\n",
				ax, ay, bx, by)
		}
	}

	for _, id := range ids {
		x, y := center(cells[id])
		room, err := g.Room(id)
		if err != nil {
			continue
		}
		fill := "#16213e"
		stroke := "#6b7280"
		if id == current {
			fill = "#0f3460"
			stroke = "#e94560"
		}
		fmt.Fprintf(&b, `  <rect x="%d" y="%d" width="%d" height="%d" rx="8" fill="%s" stroke="%s" stroke-width="3"/>`+"\n",
			x-svgRoom/2, y-svgRoom/2, svgRoom, svgRoom, fill, stroke)
		fmt.Fprintf(&b, `  <text x="%d" y="%d" text-anchor="middle" fill="#e5e7eb" font-family="monospace" font-size="12">%s</text>`+"\n",
			x, y+4, escapeText(room.Name))
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func escapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
