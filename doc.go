// Package auth is the authentication and authorization core of a multi-tenant
// Q&A board backend: JWT issuance and verification, credential providers, the
// request authentication pipeline, session lifecycle over cookies, and a
// route-level authorization policy.
//
// Token codec:
//   - TokenService mints and verifies HS256 tokens. Every token carries a
//     typ claim (access, refresh, register) and a uuid jti; Verify enforces
//     the expected type so a refresh token can never open an API request.
//
// Credentials:
//   - CredentialProvider implementations turn one kind of credential material
//     into an Identity. BasicProvider compares bcrypt hashes against the user
//     registry, TokenProvider delegates to the codec. Unknown users and wrong
//     passwords are indistinguishable to callers.
//
// Sessions:
//   - SessionAuthenticator owns sign-in, sign-out, and reissue over the
//     accessToken/refreshToken/nickname/role cookies. Reissue rotates the
//     refresh token and revokes the old jti through a RevocationStore, either
//     in-memory or Redis backed.
//
// Authorization:
//   - RouteAuthorizer evaluates an ordered rule table per request. Pattern
//     segments match literally, `*` matches one segment, a trailing `**`
//     matches the whole subtree. Routes not covered by any rule require an
//     authenticated identity.
//
// The social subpackage federates OAuth2 sign in (kakao, google) onto local
// accounts; middleware/jwtware extracts and validates bearer tokens at the
// router level.
package auth
