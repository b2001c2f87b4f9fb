// Package auth guards the HTTP gateway.
//
// Subpackages:
//
//   - jwt: HMAC-signed bearer tokens minted by `modelkit token` and checked
//     by the gateway's auth middleware
//   - authctx: typed claims carried on the request context
package auth
