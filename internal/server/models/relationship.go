package models

type RelationshipType string

const (
	Husband  RelationshipType = "marié"
	Wife     RelationshipType = "mariée"
	Son      RelationshipType = "fils"
	Daughter RelationshipType = "fille"
	Father   RelationshipType = "père"
	Mother   RelationshipType = "mère"
	Brother  RelationshipType = "frère"
	Sister   RelationshipType = "soeur"
	CousinM  RelationshipType = "cousin"
	CousinF  RelationshipType = "cousine"
)

var RelationshipTypes = []RelationshipType{
	Husband, Wife, Son, Daughter, Father, Mother, Brother, Sister, CousinM, CousinF,
}

const DefaultArrows = "to"

// Relationship is a directed edge between two people of the same tree.
type Relationship struct {
	ID     string           `json:"id,omitempty"`
	From   string           `json:"from" validate:"required"`
	To     string           `json:"to" validate:"required"`
	Type   RelationshipType `json:"type" validate:"required,oneof=marié mariée fils fille père mère frère soeur cousin cousine"`
	Label  string           `json:"label" validate:"max=200"`
	Arrows string           `json:"arrows" validate:"omitempty,oneof=to from middle"`
	Dashes bool             `json:"dashes"`
	Color  *string          `json:"color" validate:"omitempty,max=64"`
}

// WithDefaults labels the edge with its type and points it at To.
func (r Relationship) WithDefaults() Relationship {
	if r.Label == "" {
		r.Label = string(r.Type)
	}
	if r.Arrows == "" {
		r.Arrows = DefaultArrows
	}
	return r
}

type RelationshipPatch struct {
	Type   Optional[RelationshipType] `json:"type,omitzero"`
	Label  Optional[string]           `json:"label,omitzero"`
	Arrows Optional[string]           `json:"arrows,omitzero"`
	Dashes Optional[bool]             `json:"dashes,omitzero"`
	Color  Optional[string]           `json:"color,omitzero"`
}

func (p RelationshipPatch) Data() map[string]any {
	data := map[string]any{}
	put(data, "type", p.Type)
	put(data, "label", p.Label)
	put(data, "arrows", p.Arrows)
	put(data, "dashes", p.Dashes)
	put(data, "color", p.Color)
	return data
}
