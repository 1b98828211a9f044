package models

type AccessLevel string

const (
	AccessViewer AccessLevel = "viewer"
	AccessEditor AccessLevel = "editor"
)

// SharedTree grants the holder access to OwnerUID's tree. The entry for the
// holder's own tree is synthesized and never stored. IsSelected is derived
// from the active tree and never stored either.
type SharedTree struct {
	ID             string      `json:"id"`
	OwnerUID       string      `json:"ownerUid"`
	OwnerEmail     string      `json:"ownerEmail"`
	TreeName       *string     `json:"treeName"`
	AccessLevel    AccessLevel `json:"accessLevel"`
	LinkedPersonID *string     `json:"linkedPersonId"`
	IsSelected     bool        `json:"isSelected"`
}
