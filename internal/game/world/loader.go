package world

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dungeon/internal/game/item"
)

// Scenario is the world file's framing metadata.
type Scenario struct {
	Name        string
	Description string
	// Opening is the narration shown when a game starts.
	Opening string
}

// World is a fully built dungeon: the graph, its starting room, and the
// scenario framing. Each game session builds its own World so that item
// pickup and visit tracking stay per-player.
type World struct {
	Graph    *Graph
	Start    *Room
	Scenario Scenario
}

type yamlWorld struct {
	Scenario    yamlScenario     `yaml:"scenario"`
	Themes      []yamlTheme      `yaml:"themes"`
	Rooms       []yamlRoom       `yaml:"rooms"`
	Connections []yamlConnection `yaml:"connections"`
	Start       string           `yaml:"start"`
}

type yamlTheme struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
	Asset       string `yaml:"asset"`
}

type yamlScenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Opening     string `yaml:"opening"`
}

type yamlRoom struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Type        string     `yaml:"type"`
	Theme       string     `yaml:"theme"`
	Description string     `yaml:"description"`
	Enriched    string     `yaml:"enriched"`
	Asset       string     `yaml:"asset"`
	Locked      bool       `yaml:"locked"`
	Dark        bool       `yaml:"dark"`
	Items       []yamlItem `yaml:"items"`
	NPCs        []yamlNPC  `yaml:"npcs"`
}

type yamlItem struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"`
	Description string   `yaml:"description"`
	Detail      string   `yaml:"detail"`
	Phrase      string   `yaml:"phrase"`
	Weight      float64  `yaml:"weight"`
	Value       float64  `yaml:"value"`
	Aliases     []string `yaml:"aliases"`
	Unlocks     string   `yaml:"unlocks"`
	Effects     string   `yaml:"effects"`
	Smell       string   `yaml:"smell"`
	Text        string   `yaml:"text"`
	Script      string   `yaml:"script"`
}

type yamlNPC struct {
	Name        string   `yaml:"name"`
	Dialogue    string   `yaml:"dialogue"`
	Description string   `yaml:"description"`
	Aliases     []string `yaml:"aliases"`
}

// LoadWorldFile reads and builds a world from a YAML file on disk.
func LoadWorldFile(path string, logger *zap.Logger) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read world file %s: %w", path, err)
	}
	return LoadWorldFromBytes(data, logger)
}

// LoadWorldFromBytes builds a world from YAML. Malformed rooms, items,
// NPCs, and connections are skipped with a warning rather than failing
// the whole load; only an unparseable document, an empty room set, or a
// missing start room is fatal.
//
// Postcondition: The returned world's start room is marked visited.
func LoadWorldFromBytes(data []byte, logger *zap.Logger) (*World, error) {
	var doc yamlWorld
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse world file: %w", err)
	}

	themes := make(map[string]yamlTheme, len(doc.Themes))
	for _, th := range doc.Themes {
		if th.Name == "" {
			logger.Warn("skipping unnamed theme")
			continue
		}
		themes[th.Name] = th
	}

	g := NewGraph()
	for _, yr := range doc.Rooms {
		roomType, asset := yr.Type, yr.Asset
		if th, ok := themes[yr.Theme]; ok {
			// The theme supplies type and asset defaults; explicit room
			// fields win.
			if roomType == "" {
				roomType = th.Type
			}
			if asset == "" {
				asset = th.Asset
			}
		}
		r, err := NewRoom(yr.ID, yr.Name, yr.Description, roomType)
		if err != nil {
			logger.Warn("skipping invalid room", zap.String("id", yr.ID), zap.Error(err))
			continue
		}
		r.Theme = yr.Theme
		r.AssetRef = asset
		r.Locked = yr.Locked
		r.Dark = yr.Dark
		if yr.Enriched != "" {
			r.SetEnriched(yr.Enriched)
		}
		for _, yn := range yr.NPCs {
			if yn.Name == "" {
				logger.Warn("skipping unnamed npc", zap.String("room", yr.ID))
				continue
			}
			r.AddNPC(&NPC{Name: yn.Name, Dialogue: yn.Dialogue, Description: yn.Description, Aliases: yn.Aliases})
		}
		g.AddRoom(r)
	}
	if g.Len() == 0 {
		return nil, errors.New("world file contains no valid rooms")
	}

	// Items are placed after all rooms exist so keys can resolve the
	// runtime ID of the room they unlock.
	for _, yr := range doc.Rooms {
		r, err := g.RoomByRef(yr.ID)
		if err != nil {
			continue
		}
		for _, yi := range yr.Items {
			it, err := buildItem(yi, g)
			if err != nil {
				logger.Warn("skipping invalid item",
					zap.String("room", yr.ID), zap.String("item", yi.Name), zap.Error(err))
				continue
			}
			r.Place(it, yi.Phrase)
		}
	}

	for _, yc := range doc.Connections {
		if err := connect(g, yc); err != nil {
			logger.Warn("skipping invalid connection",
				zap.String("from", yc.From), zap.String("to", yc.To),
				zap.String("direction", yc.Direction), zap.Error(err))
		}
	}

	start, err := g.RoomByRef(doc.Start)
	if err != nil {
		return nil, fmt.Errorf("world start room: %w", err)
	}
	g.MarkVisited(start.ID)

	return &World{
		Graph: g,
		Start: start,
		Scenario: Scenario{
			Name:        doc.Scenario.Name,
			Description: doc.Scenario.Description,
			Opening:     doc.Scenario.Opening,
		},
	}, nil
}

type yamlConnection struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Direction string `yaml:"direction"`
}

// connect installs one connection record. A record that lands on an
// already occupied direction replaces the prior connection: the old edge
// is torn down at both endpoints before the new one is installed.
func connect(g *Graph, yc yamlConnection) error {
	dir, ok := DirectionForToken(yc.Direction)
	if !ok {
		return fmt.Errorf("invalid direction %q", yc.Direction)
	}
	from, err := g.RoomByRef(yc.From)
	if err != nil {
		return err
	}
	to, err := g.RoomByRef(yc.To)
	if err != nil {
		return err
	}
	err = g.Connect(from.ID, to.ID, dir)
	if errors.Is(err, ErrDuplicateConnection) {
		if derr := g.DisconnectDirection(from.ID, dir); derr != nil && !errors.Is(derr, ErrNotConnected) {
			return derr
		}
		if derr := g.DisconnectDirection(to.ID, dir.Opposite()); derr != nil && !errors.Is(derr, ErrNotConnected) {
			return derr
		}
		err = g.Connect(from.ID, to.ID, dir)
	}
	return err
}

func buildItem(yi yamlItem, g *Graph) (*item.Item, error) {
	var it *item.Item
	var err error
	switch yi.Kind {
	case item.KindKey:
		var target *Room
		target, err = g.RoomByRef(yi.Unlocks)
		if err != nil {
			return nil, fmt.Errorf("key unlock target: %w", err)
		}
		it, err = item.NewKey(yi.Name, yi.Description, yi.Detail, yi.Weight, yi.Value, target.ID, yi.Aliases...)
	case item.KindPotion:
		it, err = item.NewPotion(yi.Name, yi.Description, yi.Detail, yi.Effects, yi.Smell, yi.Weight, yi.Value, yi.Aliases...)
	case item.KindScroll:
		it, err = item.NewScroll(yi.Name, yi.Description, yi.Detail, yi.Text, yi.Weight, yi.Value, yi.Aliases...)
	case item.KindItem, "":
		it, err = item.New(yi.Name, yi.Description, yi.Detail, yi.Weight, yi.Value, yi.Aliases...)
	default:
		return nil, fmt.Errorf("unknown item kind %q", yi.Kind)
	}
	if err != nil {
		return nil, err
	}
	it.Script = yi.Script
	return it, nil
}
