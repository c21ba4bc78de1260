package model

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// dataURLPrefix marks inline resources.
const dataURLPrefix = "data:"

// digestPrefix marks identities derived from inline resources.
const digestPrefix = "sha3-256:"

// Identity derives the vote key for a resolved resource URL.
//
// Remote resources are keyed by their URL as-is. Inline data: URLs can be
// megabytes long, so they are keyed by the SHA3-256 digest of the URL
// instead; the same bytes always map to the same identity.
func Identity(source string) string {
	source = strings.TrimSpace(source)
	if source == "" || source == NoSource {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(source), dataURLPrefix) {
		sum := sha3.Sum256([]byte(source))
		return digestPrefix + hex.EncodeToString(sum[:])
	}
	return source
}

// ShortID returns a short stable digest of an identity, suitable for
// DOM attribute values.
func ShortID(identity string) string {
	sum := sha3.Sum256([]byte(identity))
	return hex.EncodeToString(sum[:6])
}
