// Package client talks to the famtree server.
//
// Client is the contract the CLI depends on; GRPCClient implements it over
// the famtree.v1.FamilyTree service, attaching the access token to unary and
// streaming calls. Status errors are mapped to errors carrying the server's
// user-facing message, and ErrUnavailable / ErrUnauthorized can be matched
// with errors.Is.
//
// OpenCache opens the local SQLite file holding the signed-in session and
// applies its embedded goose migrations.
package client
