package watcher

import (
	"strconv"
	"strings"

	"github.com/ritzau/notegraph/pkg/model"
)

// PrefixLen is how many leading bytes of each file's content the fingerprint samples.
// An edit beyond the prefix that keeps the length unchanged goes unnoticed.
const PrefixLen = 256

// EmptyFingerprint is the fingerprint of an empty listing. It differs from the
// zero value so that an empty vault seen for the first time still counts as a change.
const EmptyFingerprint = "<empty>"

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// Fingerprint computes a cheap, order-dependent digest of a listing from each file's
// path, content length and content prefix. It is meant for inequality tests only.
func Fingerprint(listing []model.FileEntry) string {
	if len(listing) == 0 {
		return EmptyFingerprint
	}

	var b strings.Builder
	for i, f := range listing {
		if i > 0 {
			b.WriteString(recordSep)
		}
		b.WriteString(f.Path)
		b.WriteString(fieldSep)
		b.WriteString(strconv.Itoa(len(f.Content)))
		b.WriteString(fieldSep)
		if len(f.Content) > PrefixLen {
			b.WriteString(f.Content[:PrefixLen])
		} else {
			b.WriteString(f.Content)
		}
	}
	return b.String()
}

// ShouldProcess reports whether the listing differs from the one that produced last,
// along with the new fingerprint the caller must keep for the next call.
func ShouldProcess(listing []model.FileEntry, last string) (bool, string) {
	next := Fingerprint(listing)
	return next != last, next
}
