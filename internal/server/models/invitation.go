package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
)

// Invitation offers InvitedEmail read access to OwnerUID's tree. Only pending
// invitations can change status.
type Invitation struct {
	ID             string           `json:"id,omitempty"`
	OwnerUID       string           `json:"ownerUid"`
	OwnerEmail     string           `json:"ownerEmail"`
	InvitedEmail   string           `json:"invitedEmail"`
	PersonIDInTree *string          `json:"personIdInTree"`
	Status         InvitationStatus `json:"status"`
	CreatedAt      time.Time        `json:"createdAt"`
}
