// Package middleware adapts authcore request authorization to net/http.
//
// [RequireSession] reads the access token, calls Service.AuthorizeRequest and
// injects the verified [authcore.Principal] into the request context, where
// handlers read it back with [PrincipalFromContext].
//
// The package never parses tokens or touches the store itself; every decision
// is delegated to the Authorizer.
package middleware
