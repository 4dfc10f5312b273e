// Package accounts exposes the user-account REST surface of the platform:
// registration, login with bearer-token issuance, password reset and change,
// account deletion, and an email-existence check.
//
// Storage, hashing, and mail delivery:
//   - Users and password reset requests are persisted via Bun repositories
//     behind the narrow Users / PasswordResets interfaces, so every handler
//     stays testable against a mock store.
//   - Passwords are bcrypt hashed; tokens are compact HS256 JWTs carrying only
//     the subject id and an expiry. Issued tokens are stateless: nothing on
//     the server side (including a password change) invalidates them before
//     their exp claim elapses.
//   - Reset emails go through the EmailSender interface, with a Postmark
//     sender for production and a log-only sender for development.
//
// Wire contract:
//   - Every endpoint answers with the envelope {code, message, ...}. Domain
//     error categories are mapped to HTTP statuses at the controller edge,
//     never reused as both.
package accounts
