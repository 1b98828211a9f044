package models

import "time"

// Profile is the per-identity settings document. ActiveTreeUID is the tree
// the identity is currently viewing. The personal fields are optional and
// nil until the owner fills them in.
type Profile struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName" validate:"required,max=100"`
	ActiveTreeUID string `json:"activeTreeUid"`

	FirstName        *string `json:"firstName" validate:"omitempty,max=100"`
	LastName         *string `json:"lastName" validate:"omitempty,max=100"`
	BirthDate        *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	BirthPlace       *string `json:"birthPlace" validate:"omitempty,max=200"`
	CurrentResidence *string `json:"currentResidence" validate:"omitempty,max=200"`
	Gender           *Gender `json:"gender" validate:"omitempty,oneof=male female other"`
	Nationality      *string `json:"nationality" validate:"omitempty,max=100"`
	PhoneNumber      *string `json:"phoneNumber" validate:"omitempty,phone"`
	Profession       *string `json:"profession" validate:"omitempty,max=100"`
	BioInfo          *string `json:"bioInfo" validate:"omitempty,max=2000"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProfilePatch struct {
	DisplayName      Optional[string] `json:"displayName,omitzero"`
	FirstName        Optional[string] `json:"firstName,omitzero"`
	LastName         Optional[string] `json:"lastName,omitzero"`
	BirthDate        Optional[string] `json:"birthDate,omitzero"`
	BirthPlace       Optional[string] `json:"birthPlace,omitzero"`
	CurrentResidence Optional[string] `json:"currentResidence,omitzero"`
	Gender           Optional[Gender] `json:"gender,omitzero"`
	Nationality      Optional[string] `json:"nationality,omitzero"`
	PhoneNumber      Optional[string] `json:"phoneNumber,omitzero"`
	Profession       Optional[string] `json:"profession,omitzero"`
	BioInfo          Optional[string] `json:"bioInfo,omitzero"`
}

// Data returns the stored fields touched by the patch.
func (p ProfilePatch) Data() map[string]any {
	data := map[string]any{}
	put(data, "displayName", p.DisplayName)
	put(data, "firstName", p.FirstName)
	put(data, "lastName", p.LastName)
	put(data, "birthDate", p.BirthDate)
	put(data, "birthPlace", p.BirthPlace)
	put(data, "currentResidence", p.CurrentResidence)
	put(data, "gender", p.Gender)
	put(data, "nationality", p.Nationality)
	put(data, "phoneNumber", p.PhoneNumber)
	put(data, "profession", p.Profession)
	put(data, "bioInfo", p.BioInfo)
	return data
}
