// Package enrich rewrites room descriptions through a text-generation
// model at world-load time. Enrichment is best-effort: failures leave the
// base descriptions in place, and the game never calls a model during
// command handling.
package enrich

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dungeon/internal/config"
	"github.com/cory-johannsen/dungeon/internal/game/world"
)

//go:embed prompts/room.txt
var roomPrompt string

// Enricher produces an enriched description for one room.
type Enricher interface {
	EnrichRoom(ctx context.Context, scenario world.Scenario, room *world.Room) (string, error)
}

// Client is an Enricher backed by the Anthropic Messages API.
type Client struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	tmpl      *template.Template
}

// NewClient creates a Client from configuration.
//
// Precondition: cfg must have passed validation with AI enabled.
func NewClient(cfg config.AIConfig) (*Client, error) {
	tmpl, err := template.New("room").Parse(roomPrompt)
	if err != nil {
		return nil, fmt.Errorf("parse room prompt: %w", err)
	}
	return &Client{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
		tmpl:      tmpl,
	}, nil
}

// EnrichRoom asks the model to rewrite the room's base description.
//
// Postcondition: Returns a non-empty description or an error; never an
// empty success.
func (c *Client) EnrichRoom(ctx context.Context, scenario world.Scenario, room *world.Room) (string, error) {
	var buf bytes.Buffer
	err := c.tmpl.Execute(&buf, struct {
		Scenario            string
		ScenarioDescription string
		Name                string
		Type                string
		Description         string
	}{
		Scenario:            scenario.Name,
		ScenarioDescription: scenario.Description,
		Name:                room.Name,
		Type:                room.TypeName(),
		Description:         room.Description,
	})
	if err != nil {
		return "", fmt.Errorf("render room prompt: %w", err)
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buf.String())),
		},
	})
	if err != nil {
		return "", fmt.Errorf("enrich room %q: %w", room.RefID, err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		text.WriteString(block.Text)
	}
	out := strings.TrimSpace(text.String())
	if out == "" {
		return "", errors.New("model returned no text")
	}
	return out, nil
}

// Static is an Enricher that decorates descriptions with the scenario
// framing without calling any model. It backs the game when enrichment is
// disabled or as a test double.
type Static struct{}

// EnrichRoom prepends the scenario mood to the base description.
func (Static) EnrichRoom(_ context.Context, scenario world.Scenario, room *world.Room) (string, error) {
	if scenario.Description == "" {
		return room.Description, nil
	}
	return fmt.Sprintf("%s %s", room.Description, scenario.Description), nil
}

// EnrichWorld runs the enricher over every room in the world and installs
// the results. A room that fails to enrich keeps its base description and
// is logged at Warn.
func EnrichWorld(ctx context.Context, e Enricher, w *world.World, logger *zap.Logger) {
	for _, room := range w.Graph.Rooms() {
		text, err := e.EnrichRoom(ctx, w.Scenario, room)
		if err != nil {
			logger.Warn("room enrichment failed",
				zap.String("room", room.RefID), zap.Error(err))
			continue
		}
		room.SetEnriched(text)
	}
}
