// Package auth provides an identity and session engine (registration with
// email verification codes, JWT access tokens, opaque refresh tokens, HTTP
// helpers) backed by Bun repositories.
//
// Account lifecycle:
//   - Accounts carry an AccountStatus field that is persisted via Bun.
//     Statuses cover pending, active, suspended, and deactivated so
//     verification and suspension share the same invariants.
//   - Failed logins are tracked per account; crossing the configured
//     threshold opens a lockout window that expires on its own, without a
//     background job.
//
// Audit:
//   - AuditRecorder is a best-effort security event sink used by the Engine
//     to describe registration, login, lockout, password reset, and logout
//     events. Recorder failures are logged, never surfaced to callers, so a
//     slow audit store cannot block authentication.
//
// Sessions:
//   - Access tokens are short-lived signed JWTs; refresh tokens are opaque
//     random values stored server-side and delivered both in the response
//     body and in an HTTP-only cookie. Refreshing issues a new access token
//     without rotating the refresh token.
package auth
