// Package api is the wire contract of the famtree.v1.FamilyTree gRPC
// service: method names, request and response DTOs and the codec between
// DTOs and google.protobuf.Struct messages. Server and client share it.
package api

// ServiceName is the fully qualified gRPC service name. Every message is a
// google.protobuf.Struct carrying a JSON-shaped DTO.
const ServiceName = "famtree.v1.FamilyTree"

const (
	MethodRegister               = "Register"
	MethodSignIn                 = "SignIn"
	MethodSignOut                = "SignOut"
	MethodGetProfile             = "GetProfile"
	MethodUpdateProfile          = "UpdateProfile"
	MethodSetActiveTree          = "SetActiveTree"
	MethodListAccessibleTrees    = "ListAccessibleTrees"
	MethodRemoveSharedTree       = "RemoveSharedTree"
	MethodSendInvitation         = "SendInvitation"
	MethodListPendingInvitations = "ListPendingInvitations"
	MethodAcceptInvitation       = "AcceptInvitation"
	MethodDeclineInvitation      = "DeclineInvitation"
	MethodListPeople             = "ListPeople"
	MethodListRelationships      = "ListRelationships"
	MethodAddPerson              = "AddPerson"
	MethodUpdatePerson           = "UpdatePerson"
	MethodDeletePerson           = "DeletePerson"
	MethodAddRelationship        = "AddRelationship"
	MethodUpdateRelationship     = "UpdateRelationship"
	MethodDeleteRelationship     = "DeleteRelationship"
	MethodDispatchIntent         = "DispatchIntent"
	MethodGetPortraitUploadURL   = "GetPortraitUploadURL"
	MethodGetPortraitURL         = "GetPortraitURL"
	MethodPing                   = "Ping"
	MethodWatchView              = "WatchView"
)

// FullMethod returns the "/service/method" form used by interceptors and
// clients.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}
