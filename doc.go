// Package oneclick implements the one-click unsubscribe mechanism of RFC 8058.
//
// Features:
// - Construction and validation of HTTPS unsubscribe links from a base URI and an opaque token
// - Rendering of the List-Unsubscribe and List-Unsubscribe-Post header fields
// - Constant-time token validation to resist timing side channels
// - Optional token minting with HMAC-SHA256 or JWT signing
// - Optional issued-link storage backends (in-memory, Redis) for single-use flows
package oneclick
