// Package render translates the family graph to the node and edge shapes a
// network renderer draws, and turns the renderer's user intents back into
// graph mutations.
package render

import "github.com/dmitrijs2005/famtree/internal/server/models"

// Node is a drawable person. A nil Color is omitted so the renderer applies
// its own default.
type Node struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Shape    string  `json:"shape"`
	Color    *string `json:"color,omitempty"`
	Portrait *string `json:"portrait,omitempty"`
}

// Edge is a drawable relationship.
type Edge struct {
	ID     string  `json:"id"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Type   string  `json:"type"`
	Label  string  `json:"label"`
	Arrows string  `json:"arrows"`
	Dashes bool    `json:"dashes"`
	Color  *string `json:"color,omitempty"`
}

func NodeOf(p *models.Person) Node {
	shape := p.Shape
	if shape == "" {
		shape = models.ShapeBox
	}
	return Node{
		ID:       p.ID,
		Label:    p.Label,
		Shape:    string(shape),
		Color:    nonEmpty(p.Color),
		Portrait: nonEmpty(p.PortraitKey),
	}
}

func EdgeOf(r *models.Relationship) Edge {
	label := r.Label
	if label == "" {
		label = string(r.Type)
	}
	arrows := r.Arrows
	if arrows == "" {
		arrows = models.DefaultArrows
	}
	return Edge{
		ID:     r.ID,
		From:   r.From,
		To:     r.To,
		Type:   string(r.Type),
		Label:  label,
		Arrows: arrows,
		Dashes: r.Dashes,
		Color:  nonEmpty(r.Color),
	}
}

func Nodes(people []*models.Person) []Node {
	out := make([]Node, 0, len(people))
	for _, p := range people {
		out = append(out, NodeOf(p))
	}
	return out
}

func Edges(rels []*models.Relationship) []Edge {
	out := make([]Edge, 0, len(rels))
	for _, r := range rels {
		out = append(out, EdgeOf(r))
	}
	return out
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
