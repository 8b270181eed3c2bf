// oneclick.go

package oneclick

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Header field names and the fixed POST body value mandated by RFC 8058.
const (
	HeaderListUnsubscribe     = "List-Unsubscribe"
	HeaderListUnsubscribePost = "List-Unsubscribe-Post"

	// OneClickPostValue is the exact value of the List-Unsubscribe-Post
	// header field. RFC 8058 requires it verbatim.
	OneClickPostValue = "List-Unsubscribe=One-Click"
)

const httpsPrefix = "https://"

// UnsubscribeLink is an immutable one-click unsubscribe link: a validated
// HTTPS URI composed from a base URI and an opaque per-subscriber token.
//
// The zero value is not a valid link; construct values with
// NewUnsubscribeLink or NewUnsubscribeLinkFromURL. Links are comparable with
// == and usable as map keys; equality is structural over (uri, token). A
// link is safe for concurrent use without synchronization because it is
// never mutated after construction.
type UnsubscribeLink struct {
	uri   string
	token string
}

// NewUnsubscribeLink composes and validates an unsubscribe link from an
// absolute HTTPS base URI and a non-empty opaque token.
//
// The base URI must start with the literal lowercase prefix "https://"
// (ErrRequiresHTTPS otherwise), the token must be non-empty
// (ErrInvalidToken), and the composed URI must re-parse as a valid URI
// reference (ErrInvalidURI). The token is appended verbatim after a single
// "/" separator, inserted only when the base URI does not already end in
// "/". No percent-encoding is applied; callers must supply a URL-safe token
// such as unpadded base64url.
func NewUnsubscribeLink(baseURI, token string) (UnsubscribeLink, error) {
	if !strings.HasPrefix(baseURI, httpsPrefix) {
		return UnsubscribeLink{}, fmt.Errorf("%w: got %q", ErrRequiresHTTPS, baseURI)
	}

	if len(token) == 0 {
		return UnsubscribeLink{}, fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}

	composed := baseURI + token
	if !strings.HasSuffix(baseURI, "/") {
		composed = baseURI + "/" + token
	}

	// Re-parse the composed string so tokens containing characters illegal
	// in a URI are rejected rather than silently emitted into headers.
	if _, err := url.Parse(composed); err != nil {
		return UnsubscribeLink{}, fmt.Errorf("%w: %q: %v", ErrInvalidURI, composed, err)
	}

	return UnsubscribeLink{uri: composed, token: token}, nil
}

// NewUnsubscribeLinkFromURL is a convenience constructor accepting an
// already-parsed *url.URL base. It renders the URL to its textual form and
// delegates to NewUnsubscribeLink.
func NewUnsubscribeLinkFromURL(baseURL *url.URL, token string) (UnsubscribeLink, error) {
	if baseURL == nil {
		return UnsubscribeLink{}, fmt.Errorf("%w: base URL is nil", ErrInvalidURI)
	}
	return NewUnsubscribeLink(baseURL.String(), token)
}

// URI returns the textual form of the composed unsubscribe URI.
func (link UnsubscribeLink) URI() string {
	return link.uri
}

// Token returns the opaque token the link was constructed with.
func (link UnsubscribeLink) Token() string {
	return link.token
}

// String returns the unsubscribe URI.
func (link UnsubscribeLink) String() string {
	return link.uri
}

// Validate reports whether candidate is byte-equal to the stored token.
//
// The comparison is constant-time in the token content: when lengths match,
// every byte is examined regardless of where a mismatch occurs. A length
// mismatch returns false immediately, leaking only the token length through
// timing, which is accepted since token lengths are typically fixed and
// public.
func (link UnsubscribeLink) Validate(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(link.token), []byte(candidate)) == 1
}

// ValidateToken is the error-returning counterpart of Validate for callers
// that surface mismatches as errors. It returns ErrTokenMismatch for any
// differing length or content and nil on an exact match.
func (link UnsubscribeLink) ValidateToken(candidate string) error {
	if !link.Validate(candidate) {
		return ErrTokenMismatch
	}
	return nil
}

// Headers renders the two RFC 8058 header fields for the link:
//
//	List-Unsubscribe:      <uri>
//	List-Unsubscribe-Post: List-Unsubscribe=One-Click
//
// Exactly these two entries are produced, bit-exact, with the URI wrapped in
// angle brackets.
func (link UnsubscribeLink) Headers() map[string]string {
	return map[string]string{
		HeaderListUnsubscribe:     "<" + link.uri + ">",
		HeaderListUnsubscribePost: OneClickPostValue,
	}
}

// linkPayload is the stable field-for-field wire form of an UnsubscribeLink.
type linkPayload struct {
	URI   string `json:"uri"` // Composed unsubscribe URI
	Token string `json:"tok"` // Opaque token, stored verbatim
}

// MarshalJSON serializes the link field-for-field so callers can persist an
// issued link and reconstruct it later for validation.
func (link UnsubscribeLink) MarshalJSON() ([]byte, error) {
	return json.Marshal(linkPayload{
		URI:   link.uri,
		Token: link.token,
	})
}

// UnmarshalJSON reconstructs a link from its serialized form. The
// construction invariants are re-checked so a decoded link upholds the same
// guarantees as a freshly constructed one.
func (link *UnsubscribeLink) UnmarshalJSON(data []byte) error {
	var payload linkPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("failed to decode unsubscribe link: %w", err)
	}

	if !strings.HasPrefix(payload.URI, httpsPrefix) {
		return fmt.Errorf("%w: got %q", ErrRequiresHTTPS, payload.URI)
	}
	if payload.Token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}
	if _, err := url.Parse(payload.URI); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidURI, payload.URI, err)
	}

	link.uri = payload.URI
	link.token = payload.Token
	return nil
}
