// Package iam groups the identity packages of the service.
//
//   - iam/tenant  tenant records and the read-through tenant cache
//   - iam/user    principals, password hashing and self-registration
//   - iam/auth    token issuance, credential and refresh validation, the
//     tenant gate, bearer middleware and the login/refresh/revoke flows
//
// Every flow receives an explicit kernel.RequestContext. Nothing reads the
// current tenant or user from globals.
//
// Request path:
//
//	HTTP handler -> authsrv.AuthService -> auth.Validator -> auth.TenantGate
//	             -> auth.TokenIssuer -> audit.Emitter (non-blocking)
package iam
