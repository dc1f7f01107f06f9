// Package iam groups the identity and access management packages.
//
//   - iam/identity: HTTP client for the hosted identity provider (code
//     exchange, password and OTP grants, signup, userinfo)
//   - iam/session: HS256 session cookie codec
//   - iam/state: OAuth state payloads with nonce binding
//   - iam/user: local user records and reconciliation against provider claims
//   - iam/auth: fiber handlers and the session middleware
//   - iam/iamcontainer: wiring for the module
//
// A login, by any method, ends with the provider's id token sealed into the
// "session" cookie and a local user row matching the token's subject:
//
//	provider tokens  →  identity.DecodeClaims  →  usersrv.Reconcile  →  session cookie
package iam
