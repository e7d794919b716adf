// Package identity verifies who is behind a request and keeps local
// accounts in step with external identity providers.
//
// Tokens and sessions:
//   - TokenService signs and parses short lived bearer tokens. A token is a
//     capability, not a source of truth: SessionValidator re-reads the
//     account (existence, suspension) and, when the token carries a session
//     reference, the session (existence, owner, expiry) on every request.
//   - Accepted sessions are refreshed through a SessionSink on a detached
//     goroutine. Refresh failures are logged and counted but never change
//     the validation result. Call SessionValidator.Wait during shutdown.
//
// Credentials:
//   - Authenticator implements password login and registration on top of a
//     Store. Usernames and emails are compared by ComparisonKey, emails are
//     stored in their sanitized form (see the sanitize package), and taken
//     usernames are reported with alternatives.
//
// Errors:
//   - Every failure surfaced here is a go-errors value classified by text
//     code. Use the Is* helpers (IsUnauthorized, IsStorageConflict,
//     IsUpstreamUnavailable, ...) instead of comparing messages.
//
// Activity sinks:
//   - ActivitySink receives login, registration and social linking events.
//     Sinks run best-effort (errors are logged) so you can forward to a
//     database or queue without blocking authentication.
//
// Social sign-in lives in the social package, storage in repository and
// environment configuration in config.
package identity
