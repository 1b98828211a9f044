package api

import (
	"time"

	"github.com/dmitrijs2005/famtree/internal/server/models"
)

// Field names follow the JSON of the models.

type CredentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type SessionResponse struct {
	AccessToken string           `json:"accessToken"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Identity    *models.Identity `json:"identity"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type IDResponse struct {
	ID string `json:"id"`
}

type TreeRequest struct {
	TreeUID string `json:"treeUid"`
}

type InvitationRequest struct {
	Email          string  `json:"email"`
	PersonIDInTree *string `json:"personIdInTree,omitempty"`
}

type PersonPatchRequest struct {
	ID    string             `json:"id"`
	Patch models.PersonPatch `json:"patch"`
}

type RelationshipPatchRequest struct {
	ID    string                   `json:"id"`
	Patch models.RelationshipPatch `json:"patch"`
}

type PortraitRequest struct {
	PersonID string `json:"personId"`
}

type PortraitResponse struct {
	Key string `json:"key,omitempty"`
	URL string `json:"url"`
}

type TreesResponse struct {
	Trees []*models.SharedTree `json:"trees"`
}

type InvitationsResponse struct {
	Invitations []*models.Invitation `json:"invitations"`
}

type PeopleResponse struct {
	People []*models.Person `json:"people"`
}

type RelationshipsResponse struct {
	Relationships []*models.Relationship `json:"relationships"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type Empty struct{}
