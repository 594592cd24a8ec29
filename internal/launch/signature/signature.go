// Package signature implements OAuth 1.0a HMAC-SHA1 request signing as used
// by LTI 1.x tool launches. Verify is a pure function over the request
// parameters; replay protection and field presence live with the caller.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ParamSignature is the parameter carrying the signature itself; it is never
// part of the signed base string.
const ParamSignature = "oauth_signature"

// ErrMismatch is returned when the computed signature does not match the one
// presented by the caller.
var ErrMismatch = errors.New("signature mismatch")

// Sign computes the OAuth 1.0a HMAC-SHA1 signature for the given request.
// Used by tests and by tooling that emulates an LMS consumer; the server side
// only verifies.
func Sign(method, rawURL string, params map[string]string, consumerSecret string) (string, error) {
	base, err := BaseString(method, rawURL, params)
	if err != nil {
		return "", err
	}
	// No token secret in the LTI launch flow; the key is still suffixed
	// with the "&" separator the protocol requires.
	key := percentEncode(consumerSecret) + "&"
	mac := hmac.New(sha1.New, []byte(key))
	mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature over the request and compares it in
// constant time against the oauth_signature parameter. Transport-level URL
// decoding of the parameters must already have happened (net/http form
// parsing does this).
func Verify(method, rawURL string, params map[string]string, consumerSecret string) error {
	provided, ok := params[ParamSignature]
	if !ok || provided == "" {
		return ErrMismatch
	}
	computed, err := Sign(method, rawURL, params, consumerSecret)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(computed), []byte(provided)) != 1 {
		return ErrMismatch
	}
	return nil
}

// BaseString builds the OAuth 1.0a signature base string: the uppercase HTTP
// method, the percent-encoded base URL with the query stripped, and the
// percent-encoded normalized parameter string.
func BaseString(method, rawURL string, params map[string]string) (string, error) {
	base, err := baseURL(rawURL)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(method) + "&" + percentEncode(base) + "&" + percentEncode(normalizeParams(params)), nil
}

// baseURL normalizes the request URL per the protocol: lowercase scheme and
// host, default ports dropped, query and fragment stripped.
func baseURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse launch URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("launch URL %q is not absolute", rawURL)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	return scheme + "://" + host + u.EscapedPath(), nil
}

// normalizeParams percent-encodes every parameter except the signature
// itself, sorts the pairs by encoded key (then encoded value), and joins them
// with "&". Parameters with empty values are excluded entirely rather than
// encoded as zero-length.
func normalizeParams(params map[string]string) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, v := range params {
		if k == ParamSignature || v == "" {
			continue
		}
		pairs = append(pairs, pair{percentEncode(k), percentEncode(v)})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.k + "=" + p.v
	}
	return strings.Join(parts, "&")
}

const upperhex = "0123456789ABCDEF"

// percentEncode implements RFC 3986 encoding as OAuth 1.0a requires it: only
// ALPHA / DIGIT / "-" / "." / "_" / "~" stay literal. This deliberately
// escapes "! * ' ( )", which many general-purpose encoders leave alone.
func percentEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' ||
			c == '-' || c == '.' || c == '_' || c == '~' {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}
