// Package checklist holds the procedural checklists (protocols) that are
// surfaced to the operator when the conversation mentions their keywords.
package checklist

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"node.town/triage/convo"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Type string

const (
	TypeLifeThreatening Type = "life_threatening"
	TypeSocial          Type = "social"
	TypeAppointment     Type = "appointment"
)

type Protocol struct {
	ID          string       `json:"id" yaml:"id"`
	Type        Type         `json:"type" yaml:"type"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description" yaml:"description"`
	Steps       []convo.Step `json:"steps" yaml:"steps"`
	Keywords    []string     `json:"keywords" yaml:"keywords"`
}

// Suggestion turns the protocol into the advisory item sent to the client.
func (p Protocol) Suggestion() convo.Suggestion {
	priority := convo.PriorityMedium
	if p.Type == TypeLifeThreatening {
		priority = convo.PriorityHigh
	}
	return convo.Suggestion{
		Kind:                convo.KindProtocol,
		Text:                "Relevant protocol: " + p.Title,
		Priority:            priority,
		ProtocolID:          p.ID,
		ProtocolType:        string(p.Type),
		ProtocolDescription: p.Description,
		Steps:               p.Steps,
	}
}

type Catalog struct {
	protocols []Protocol
}

func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded checklist catalog: %v", err))
	}
	return c
}

func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var protocols []Protocol
	if err := yaml.Unmarshal(data, &protocols); err != nil {
		return nil, fmt.Errorf("parse checklist catalog: %w", err)
	}
	seen := make(map[string]bool, len(protocols))
	for _, p := range protocols {
		if p.ID == "" {
			return nil, fmt.Errorf("checklist %q has no id", p.Title)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("duplicate checklist id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return &Catalog{protocols: protocols}, nil
}

func (c *Catalog) All() []Protocol {
	out := make([]Protocol, len(c.protocols))
	copy(out, c.protocols)
	return out
}

func (c *Catalog) ByID(id string) (Protocol, bool) {
	for _, p := range c.protocols {
		if p.ID == id {
			return p, true
		}
	}
	return Protocol{}, false
}

// Relevant returns the protocols with at least one keyword occurring in
// the text, case-insensitively, in catalog order.
func (c *Catalog) Relevant(text string) []Protocol {
	lower := strings.ToLower(text)
	var out []Protocol
	for _, p := range c.protocols {
		for _, kw := range p.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Match returns one protocol suggestion per relevant protocol.
func (c *Catalog) Match(text string) []convo.Suggestion {
	relevant := c.Relevant(text)
	out := make([]convo.Suggestion, 0, len(relevant))
	for _, p := range relevant {
		out = append(out, p.Suggestion())
	}
	return out
}
