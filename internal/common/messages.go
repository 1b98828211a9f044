package common

import "errors"

// Message categories shown to end users.
const (
	MsgInvalidCredentials = "Invalid email or password."
	MsgWeakPassword       = "The password is too weak (6 characters minimum)."
	MsgEmailInUse         = "This email is already in use."
	MsgInvalidEmail       = "The email address is invalid."
	MsgSessionExpired     = "Your session has expired, please sign in again."
	MsgNotAuthenticated   = "Please sign in first."
	MsgAccessDenied       = "You can only modify your own tree."
	MsgSelfLoop           = "A person cannot be related to themselves."
	MsgSelfInvite         = "You cannot invite yourself."
	MsgDuplicatePending   = "An invitation is already pending for this user."
	MsgInvalidOperation   = "This operation is not allowed."
	MsgInvalidArgument    = "Some fields are missing or invalid."
	MsgNotFound           = "The requested item no longer exists."
	MsgUnavailable        = "The service is temporarily unavailable, please retry."
	MsgGeneric            = "Something went wrong, please try again."
)

var providerMessages = map[string]string{
	CodeEmailInUse:        MsgEmailInUse,
	CodeInvalidEmail:      MsgInvalidEmail,
	CodeWeakPassword:      MsgWeakPassword,
	CodeInvalidCredential: MsgInvalidCredentials,
	CodeInvalidToken:      MsgSessionExpired,
	CodeUnavailable:       MsgUnavailable,
}

// UserMessage maps any failure to a fixed human-readable category.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if code := ProviderCode(err); code != "" {
		if msg, ok := providerMessages[code]; ok {
			return msg
		}
		return MsgGeneric
	}
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return MsgNotAuthenticated
	case errors.Is(err, ErrAccessDenied):
		return MsgAccessDenied
	case errors.Is(err, ErrSelfLoop):
		return MsgSelfLoop
	case errors.Is(err, ErrSelfInvite):
		return MsgSelfInvite
	case errors.Is(err, ErrDuplicatePending):
		return MsgDuplicatePending
	case errors.Is(err, ErrInvalidOperation), errors.Is(err, ErrPreconditionFailed):
		return MsgInvalidOperation
	case errors.Is(err, ErrInvalidArgument):
		return MsgInvalidArgument
	case errors.Is(err, ErrorNotFound):
		return MsgNotFound
	}
	return MsgGeneric
}
