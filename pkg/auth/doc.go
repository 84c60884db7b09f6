// Package auth implements the authentication core: the role hierarchy,
// session lifecycle management, and the request identity bound to each
// authenticated request.
//
// Sessions are issued on a successful login callback and addressed by an
// opaque, cryptographically random token carried in a cookie. Expiry is
// evaluated lazily at read time; there is no per-session timer. A background
// sweep exists only for storage hygiene and is not required for correctness.
//
// Session state lives entirely in a SessionStore. Three implementations are
// provided: an in-memory store for tests and development, a PostgreSQL store,
// and a Redis store. Concurrency control over session rows is the store's
// responsibility; the manager holds no shared mutable state.
package auth
