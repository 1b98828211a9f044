// Package common contains shared constants and sentinel errors used across
// famtree components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// Provider error codes surfaced by the identity provider.
const (
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeWeakPassword      = "auth/weak-password"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeInvalidToken      = "auth/invalid-token"
	CodeUnavailable       = "store/unavailable"
)
