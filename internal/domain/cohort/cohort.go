// Package cohort derives stable identifiers for sets of PPMI patients.
//
// An identifier is a pure function of the set of patient numbers: order and
// duplicates in the input never change it. Identifiers end up in file names
// consumed by SPM, which crashes on names containing '-', so the rendered id
// never contains a minus sign and is never parseable as a plain integer.
package cohort

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Mode selects the identifier generator.
type Mode string

const (
	// ModeHash renders a signed 64-bit hash in decimal.
	ModeHash Mode = "hash"
	// ModeDigest renders a name-based UUID over the sorted id list.
	ModeDigest Mode = "digest"
)

// digestNamespace scopes Digest UUIDs so they cannot collide with other
// name-based UUIDs derived from the same bytes.
var digestNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://livingpark-mri.github.io/ppmi/cohort"))

// Generator returns the identifier function for mode.
func Generator(mode Mode) (func(ids []string) string, error) {
	switch mode {
	case ModeHash, "":
		return ID, nil
	case ModeDigest:
		return Digest, nil
	default:
		return nil, fmt.Errorf("unknown cohort id mode %q (expected %q or %q)", mode, ModeHash, ModeDigest)
	}
}

// ID returns the hash-based identifier of the cohort. Collisions between
// distinct cohorts are possible; use Digest when that matters.
func ID(ids []string) string {
	h := fnv.New64a()
	h.Write(canonical(ids))
	v := int64(h.Sum64())

	s := strconv.FormatInt(v, 10)
	if v < 0 {
		return strings.Replace(s, "-", "_", 1)
	}
	return s + "_"
}

// IDInts is ID for numeric patient numbers.
func IDInts(ids []int64) string {
	return ID(formatInts(ids))
}

// Digest returns a content-derived identifier: a SHA-1 name-based UUID over
// the canonical encoding of the cohort, rendered as 32 hex characters.
func Digest(ids []string) string {
	u := uuid.NewSHA1(digestNamespace, canonical(ids))
	return strings.ReplaceAll(u.String(), "-", "")
}

// Normalize deduplicates and sorts ids. When every id is an integer they are
// ordered numerically, otherwise lexically.
func Normalize(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	numeric := true
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			numeric = false
		}
	}

	if numeric {
		sort.Slice(out, func(i, j int) bool {
			a, _ := strconv.ParseInt(out[i], 10, 64)
			b, _ := strconv.ParseInt(out[j], 10, 64)
			return a < b
		})
		// "007" and "7" are the same patient.
		for i, id := range out {
			n, _ := strconv.ParseInt(id, 10, 64)
			out[i] = strconv.FormatInt(n, 10)
		}
		return dedupSorted(out)
	}
	sort.Strings(out)
	return out
}

// canonical encodes the normalized ids as a length-prefixed byte sequence.
func canonical(ids []string) []byte {
	norm := Normalize(ids)
	var buf []byte
	var n [binary.MaxVarintLen64]byte
	for _, id := range norm {
		k := binary.PutUvarint(n[:], uint64(len(id)))
		buf = append(buf, n[:k]...)
		buf = append(buf, id...)
	}
	return buf
}

func dedupSorted(ids []string) []string {
	out := ids[:0]
	for _, id := range ids {
		if len(out) > 0 && id == out[len(out)-1] {
			continue
		}
		out = append(out, id)
	}
	return out
}

func formatInts(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}
