// Package auth implements identity and session control for the folio
// document platform: account signup with emailed one-time codes, the
// verification state machine, stateless JWT sessions, and the route gate
// that enforces role-based access on every request.
//
// Verification codes:
//   - CodeIssuer generates five digit codes for signup and password reset,
//     persists them through the repository layer, and delivers them by mail
//     after the transaction commits. Resends are capped and a fresh code
//     always supersedes the previous one.
//   - Verifier consumes submitted codes. A match activates the account; on
//     the signup track too many failures destroy it outright, while on the
//     reset track they only burn the reset request.
//
// Sessions:
//   - TokenService signs and validates HS256 JWTs. Claims carry the account
//     id under "uid" and are still readable from the legacy "user_id" claim
//     during the cutover window. There is no server side session state and
//     no revocation: tokens stay valid until expiry.
//
// Access control:
//   - Gate classifies request paths against a static longest-prefix rule
//     table and decides allow, redirect, or deny. Paths matching no rule
//     require authentication, so forgetting a rule fails closed. The
//     middleware/routegate package wires the gate into go-router.
package auth
