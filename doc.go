// Package auth issues and checks short lived, HMAC-SHA256 signed session
// tokens.
//
// Tokens:
//   - A token is base64url(header).base64url(claims).base64url(signature),
//     readable by any JWT library. The header is always
//     {"alg":"HS256","typ":"JWT"} and the claims carry the login (lid), display
//     name (name), admin flag (admin), expiration in seconds (exp) and the id of
//     the secret that signed it (sid).
//
// Issuance:
//   - Issuer checks a login and credential once against a CredentialVerifier
//     and signs claims with the current secret. Every kind of credential
//     failure surfaces as ErrInvalidCredentials.
//
// Verification:
//   - Gate turns an Authorization header into an AuthenticationResult. Checks
//     stop at the first failure and malformed input is rejected before any
//     signature is computed. Rejections carry a reason for logs; clients only
//     ever see ErrRejected.
//
// Secrets:
//   - SecretStore keeps the current signing secret and the retired ones still
//     needed to verify live tokens. Rotation publishes a new snapshot so
//     readers never observe a partial update; Prune drops retired secrets once
//     every token they signed has expired.
//
// Activity sinks:
//   - ActivitySink receives issuance, rejection and rotation events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or queue
//     without blocking authentication.
package auth
