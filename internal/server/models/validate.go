package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/famtree/internal/common"
	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^\+?\d{6,15}$`)
	validate     = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks struct tags and returns a common.ErrInvalidArgument wrapped
// error listing every failing field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.ToLower(e.Field())
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, field+" must be one of "+e.Param())
		case "max":
			msgs = append(msgs, field+" must be at most "+e.Param()+" characters")
		case "datetime":
			msgs = append(msgs, field+" must be a date formatted as "+e.Param())
		case "phone":
			msgs = append(msgs, field+" must be 6 to 15 digits with an optional leading +")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return fmt.Errorf("%w: %s", common.ErrInvalidArgument, strings.Join(msgs, "; "))
}

// ValidatePersonPatch checks the fields a patch sets.
func ValidatePersonPatch(p PersonPatch) error {
	if p.Label.IsNull() {
		return fmt.Errorf("%w: label cannot be cleared", common.ErrInvalidArgument)
	}
	if p.Shape.IsNull() {
		return fmt.Errorf("%w: shape cannot be cleared", common.ErrInvalidArgument)
	}
	sample := Person{Label: "x", Shape: ShapeBox}
	if v, ok := p.Label.Get(); ok {
		sample.Label = v
	}
	if v, ok := p.Shape.Get(); ok {
		sample.Shape = v
	}
	sample.Color = p.Color.Ptr()
	sample.DOB = p.DOB.Ptr()
	sample.Gender = p.Gender.Ptr()
	return Validate(sample)
}

// ValidateProfilePatch checks the fields a patch sets.
func ValidateProfilePatch(p ProfilePatch) error {
	if p.DisplayName.IsNull() {
		return fmt.Errorf("%w: display name cannot be cleared", common.ErrInvalidArgument)
	}
	sample := Profile{DisplayName: "x"}
	if v, ok := p.DisplayName.Get(); ok {
		sample.DisplayName = v
	}
	sample.FirstName = p.FirstName.Ptr()
	sample.LastName = p.LastName.Ptr()
	sample.BirthDate = p.BirthDate.Ptr()
	sample.BirthPlace = p.BirthPlace.Ptr()
	sample.CurrentResidence = p.CurrentResidence.Ptr()
	sample.Gender = p.Gender.Ptr()
	sample.Nationality = p.Nationality.Ptr()
	sample.PhoneNumber = p.PhoneNumber.Ptr()
	sample.Profession = p.Profession.Ptr()
	sample.BioInfo = p.BioInfo.Ptr()
	return Validate(sample)
}

// ValidateRelationshipPatch checks the fields a patch sets.
func ValidateRelationshipPatch(p RelationshipPatch) error {
	if p.Type.IsNull() || p.Arrows.IsNull() || p.Dashes.IsNull() || p.Label.IsNull() {
		return fmt.Errorf("%w: only color can be cleared", common.ErrInvalidArgument)
	}
	sample := Relationship{From: "a", To: "b", Type: Father}
	if v, ok := p.Type.Get(); ok {
		sample.Type = v
	}
	if v, ok := p.Label.Get(); ok {
		sample.Label = v
	}
	if v, ok := p.Arrows.Get(); ok {
		sample.Arrows = v
	}
	sample.Color = p.Color.Ptr()
	return Validate(sample)
}
