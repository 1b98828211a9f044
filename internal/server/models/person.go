package models

type Shape string

const (
	ShapeBox          Shape = "box"
	ShapeCircle       Shape = "circle"
	ShapeEllipse      Shape = "ellipse"
	ShapeDatabase     Shape = "database"
	ShapeDiamond      Shape = "diamond"
	ShapeDot          Shape = "dot"
	ShapeStar         Shape = "star"
	ShapeTriangle     Shape = "triangle"
	ShapeTriangleDown Shape = "triangleDown"
	ShapeText         Shape = "text"
)

var Shapes = []Shape{
	ShapeBox, ShapeCircle, ShapeEllipse, ShapeDatabase, ShapeDiamond,
	ShapeDot, ShapeStar, ShapeTriangle, ShapeTriangleDown, ShapeText,
}

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Person is a node of a family tree. A nil Color lets the renderer choose.
type Person struct {
	ID          string  `json:"id,omitempty"`
	Label       string  `json:"label" validate:"required,max=200"`
	Shape       Shape   `json:"shape" validate:"omitempty,oneof=box circle ellipse database diamond dot star triangle triangleDown text"`
	Color       *string `json:"color" validate:"omitempty,max=64"`
	DOB         *string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
	Gender      *Gender `json:"gender" validate:"omitempty,oneof=male female other"`
	PortraitKey *string `json:"portraitKey,omitempty"`
}

// WithDefaults fills the fields the renderer needs.
func (p Person) WithDefaults() Person {
	if p.Shape == "" {
		p.Shape = ShapeBox
	}
	return p
}

type PersonPatch struct {
	Label  Optional[string] `json:"label,omitzero"`
	Shape  Optional[Shape]  `json:"shape,omitzero"`
	Color  Optional[string] `json:"color,omitzero"`
	DOB    Optional[string] `json:"dob,omitzero"`
	Gender Optional[Gender] `json:"gender,omitzero"`
}

// Data returns the stored fields touched by the patch.
func (p PersonPatch) Data() map[string]any {
	data := map[string]any{}
	put(data, "label", p.Label)
	put(data, "shape", p.Shape)
	put(data, "color", p.Color)
	put(data, "dob", p.DOB)
	put(data, "gender", p.Gender)
	return data
}

func put[T any](data map[string]any, key string, o Optional[T]) {
	if o.IsSet() {
		data[key] = o.Field()
	}
}
