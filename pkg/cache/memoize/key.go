package memoize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Key derives a deterministic cache key from a scope (typically the name
// of the computation) and its positional arguments. Each argument is
// encoded together with its Go type before hashing, so two values with
// the same printed form but different types do not collide.
func Key(scope string, parts ...any) string {
	h := sha256.New()
	for _, part := range parts {
		writePart(h, part)
	}
	return scope + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

// KeyFields derives a deterministic cache key from named arguments. The
// field names are sorted before hashing, so the key is independent of
// the order the fields were supplied in.
func KeyFields(scope string, fields map[string]any) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write([]byte(name))
		writePart(h, fields[name])
	}
	return scope + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}

func writePart(h interface{ Write(p []byte) (int, error) }, part any) {
	fmt.Fprintf(h, "%T|", part)
	encoded, err := json.Marshal(part)
	if err != nil {
		// unencodable arguments still need a stable representation
		encoded = []byte(fmt.Sprintf("%#v", part))
	}
	h.Write(encoded)
	h.Write([]byte{0})
}
