package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	return SHA256Bytes([]byte(input))
}

// SHA256Bytes returns the hex-encoded SHA256 hash of data.
func SHA256Bytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Prefix returns the first n characters of a hex digest, or all of it.
func Prefix(digest string, n int) string {
	if n > len(digest) {
		return digest
	}
	return digest[:n]
}

// ObjectKey builds the storage key for an uploaded file:
// media/<userID>/<digest prefix>-<uuid><ext>. The extension is taken from
// filename and lower-cased.
func ObjectKey(userID int64, digest, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("media/%d/%s-%s%s", userID, Prefix(digest, 16), uuid.NewString(), ext)
}
