// Package index builds immutable index versions from content
// snapshots.
package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/askbase/askbase/internal/content"
)

// Fingerprint computes a stable digest of a content snapshot. Two
// snapshots with the same items and modification times produce the
// same fingerprint, which is how the rebuild loop detects that an
// index is already up to date.
func Fingerprint(items []content.Item) string {
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.ID+":"+strconv.FormatInt(it.UpdatedAt.UnixNano(), 10))
	}
	sort.Strings(lines)

	h := sha256.New()
	fmt.Fprintf(h, "n=%d\n", len(items))
	for _, line := range lines {
		h.Write([]byte(line))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
