// Package approve implements content addressing and the deterministic
// approval token that gates writes. The token is a pure function of
// (file identity, starting content hash, exact diff text): no issuance
// table, no expiry clock. Staleness is enforced structurally: any change
// to the file changes its hash and with it the expected token.
package approve

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

// HashPrefix prefixes every content hash.
const HashPrefix = "sha256:"

// TokenPrefix prefixes every approval token.
const TokenPrefix = "appr_"

// tokenHexLen is the number of hex digits kept from the token digest.
const tokenHexLen = 16

const bom = "\uFEFF"

// ContentHash returns "sha256:<hex>" over the UTF-8 bytes of text with any
// leading BOM stripped.
func ContentHash(text string) string {
	text = strings.TrimPrefix(text, bom)
	sum := sha256.Sum256([]byte(text))
	return HashPrefix + hex.EncodeToString(sum[:])
}

// PathKey canonicalizes a file identity for token derivation:
// rootKey + ":" + slash-form relative path.
func PathKey(rootKey, relPath string) string {
	return rootKey + ":" + filepath.ToSlash(relPath)
}

// Token derives the approval token binding pathKey, the before-content
// hash, and the exact diff text. Identical inputs always yield the
// identical token; changing any input changes it.
func Token(pathKey, beforeHash, diffText string) string {
	diffSum := sha256.Sum256([]byte(diffText))
	payload := pathKey + "\n" + beforeHash + "\n" + hex.EncodeToString(diffSum[:])
	sum := sha256.Sum256([]byte(payload))
	return TokenPrefix + hex.EncodeToString(sum[:])[:tokenHexLen]
}
