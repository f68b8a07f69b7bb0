// Package normalize contains the pure heuristics that turn raw catalog
// strings into structured fields.
//
// The author-name split is best effort: it divides the raw string into at
// most three whitespace groups from the right, so patronymics land in the
// middle name and compound surnames of four or more tokens stay inside the
// last name. It cannot be correct for every name shape.
package normalize

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/khasanovbi/tretyakov-backend/internal/catalog"
)

// aliasSuffix matches a trailing parenthesized alias, e.g. "(школа N)".
var aliasSuffix = regexp.MustCompile(`\(.*\)$`)

// unknownArtistMarker is the catalog's convention for unattributed works.
// Strings containing it are artist placeholders, not real names, and are
// kept whole in the last name.
const unknownArtistMarker = "Неизвестный художник"

// AuthorName splits a raw author string into structured name parts.
// It never fails; unparseable input degrades to a last-name-only result.
func AuthorName(raw string) catalog.AuthorName {
	cleaned := strings.TrimSpace(aliasSuffix.ReplaceAllString(raw, ""))
	if strings.Contains(cleaned, unknownArtistMarker) {
		return catalog.AuthorName{LastName: cleaned}
	}

	parts := rightSplit(cleaned, 2)
	name := catalog.AuthorName{LastName: parts[0]}
	if len(parts) > 1 {
		name.FirstName = parts[1]
	}
	if len(parts) > 2 {
		name.MiddleName = parts[2]
	}
	return name
}

// rightSplit splits s on single spaces from the right at most n times,
// returning the groups in original order.
func rightSplit(s string, n int) []string {
	var tail []string
	for i := 0; i < n; i++ {
		idx := strings.LastIndex(s, " ")
		if idx < 0 {
			break
		}
		tail = append([]string{s[idx+1:]}, tail...)
		s = s[:idx]
	}
	return append([]string{s}, tail...)
}

// TitleYears splits a raw title on its last period. The suffix, when
// present, is the catalog's year range; both halves are trimmed.
func TitleYears(raw string) (title, years string) {
	idx := strings.LastIndex(raw, ".")
	if idx < 0 {
		return strings.TrimSpace(raw), ""
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+1:])
}

// Filename derives the on-disk image name for an item. The name is the
// hex sha256 of the source URL plus the image's original extension, so it
// is deterministic per item and free of title collisions.
func Filename(sourceURL, imageURL string) string {
	ext := path.Ext(imageURL)
	if u, err := url.Parse(imageURL); err == nil && u.Path != "" {
		ext = path.Ext(u.Path)
	}
	return fmt.Sprintf("%x%s", sha256.Sum256([]byte(sourceURL)), ext)
}

// Item converts one raw detail-page record into its normalized form.
func Item(raw catalog.RawItemMetadata) catalog.ItemMetadata {
	return catalog.ItemMetadata{
		SourceURL:   raw.SourceURL,
		Title:       raw.Title,
		Years:       raw.Years,
		ImageURL:    raw.ImageURL,
		Description: raw.Description,
		Author:      AuthorName(raw.RawAuthor),
		Filename:    Filename(raw.SourceURL, raw.ImageURL),
	}
}
