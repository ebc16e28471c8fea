// Package policy enforces tenant isolation on verified auth contexts.
//
// Checks run after token verification and before identity resolution:
//   - Client allowlist (azp / client_id)
//   - App claims (app id and app environment)
//   - Required scopes
//
// Evaluation is stateless and safe for concurrent use.
package policy
