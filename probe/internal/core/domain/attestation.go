package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// DefaultAttestationURL is the peers view of the local IPv8 attestation community.
const DefaultAttestationURL = "http://localhost:14410/attestation?type=peers"

// DefaultExpectedPeers are the peer fingerprints a healthy node must know.
var DefaultExpectedPeers = []string{
	"K1ifTZ++hPN4UqU24rSc/czfYZY=",
	"eGU/YRXWJB18VQf8UbOoIhW9+xM=",
}

// ErrNotACollection is returned when a decoded payload has no membership
// (a number, a boolean or null).
var ErrNotACollection = errors.New("attestation payload is not a collection")

// DecodeAttestation decodes a peers response body. The body must hold exactly
// one JSON value; trailing data is rejected. The non-finite number tokens
// NaN, Infinity and -Infinity are accepted and decode as null.
func DecodeAttestation(body []byte) (any, error) {
	var payload any
	err := json.Unmarshal(body, &payload)
	if err == nil {
		return payload, nil
	}

	normalized, replaced := replaceNonFinite(body)
	if !replaced {
		return nil, err
	}
	if json.Unmarshal(normalized, &payload) != nil {
		// Report the error against the body as received
		return nil, err
	}
	return payload, nil
}

var nonFiniteTokens = [][]byte{[]byte("-Infinity"), []byte("Infinity"), []byte("NaN")}

// replaceNonFinite rewrites non-finite number tokens outside string literals
// to null.
func replaceNonFinite(body []byte) ([]byte, bool) {
	out := make([]byte, 0, len(body))
	inString, escaped, replaced := false, false, false

	for i := 0; i < len(body); {
		c := body[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			out = append(out, c)
			i++
			continue
		}

		if c == '"' {
			inString = true
		} else if tok := matchNonFinite(body[i:]); tok != nil {
			out = append(out, "null"...)
			i += len(tok)
			replaced = true
			continue
		}
		out = append(out, c)
		i++
	}
	return out, replaced
}

func matchNonFinite(b []byte) []byte {
	for _, tok := range nonFiniteTokens {
		if bytes.HasPrefix(b, tok) {
			return tok
		}
	}
	return nil
}

// Contains reports whether id is a member of the decoded payload.
//
// Arrays match on string elements, objects on their keys and strings on
// substrings. Nested values are never searched.
func Contains(payload any, id string) (bool, error) {
	switch v := payload.(type) {
	case []any:
		for _, elem := range v {
			if s, ok := elem.(string); ok && s == id {
				return true, nil
			}
		}
		return false, nil
	case map[string]any:
		_, ok := v[id]
		return ok, nil
	case string:
		return strings.Contains(v, id), nil
	default:
		return false, fmt.Errorf("%w: got %T", ErrNotACollection, payload)
	}
}

// MissingPeers returns the expected peers that are not members of payload,
// preserving their order.
func MissingPeers(payload any, expected []string) ([]string, error) {
	var missing []string
	for _, id := range expected {
		ok, err := Contains(payload, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
