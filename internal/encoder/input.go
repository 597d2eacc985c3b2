package encoder

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is what an input string refers to.
type Kind int

const (
	KindText Kind = iota
	KindURL
	KindImage
	KindMetadata
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindImage:
		return "image"
	case KindMetadata:
		return "metadata"
	default:
		return "text"
	}
}

// Classify decides how to treat input: an existing file is an image, or a
// metadata sidecar when its content is JSON; an http(s) link is a URL;
// anything else is a text payload.
func Classify(input string) Kind {
	if info, err := os.Stat(input); err == nil && !info.IsDir() {
		if mt, err := mimetype.DetectFile(input); err == nil && mt.Is("application/json") {
			return KindMetadata
		}
		return KindImage
	}
	if isURL(input) {
		return KindURL
	}
	return KindText
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// ErrInvalidPlaceID is returned for strings that are not Google Place IDs.
var ErrInvalidPlaceID = errors.New("invalid place id")

// ValidPlaceID reports whether id looks like a Google Place ID.
func ValidPlaceID(id string) bool {
	id = strings.TrimSpace(id)
	return len(id) > 4 && (strings.HasPrefix(id, "ChIJ") || strings.HasPrefix(id, "EI"))
}

// ReviewURL returns the link that opens the review form of a place.
func ReviewURL(placeID string) (string, error) {
	placeID = strings.TrimSpace(placeID)
	if !ValidPlaceID(placeID) {
		return "", fmt.Errorf("%w: %q must start with 'ChIJ' or 'EI'", ErrInvalidPlaceID, placeID)
	}
	return "https://search.google.com/local/writereview?placeid=" + url.QueryEscape(placeID), nil
}

const maxNameLen = 40

// OutputName derives an artifact base name from an input. URLs use their
// host without "www." and with dots as underscores, files use their stem and
// text becomes a lowercase slug.
func OutputName(input string) string {
	var name string
	switch Classify(input) {
	case KindURL:
		if u, err := url.Parse(input); err == nil && u.Host != "" {
			name = strings.TrimPrefix(strings.ToLower(u.Host), "www.")
			name = strings.NewReplacer(".", "_", ":", "_").Replace(name)
		}
	case KindImage, KindMetadata:
		base := filepath.Base(input)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	default:
		name = slug(input)
	}
	if name == "" {
		return "qr-code"
	}
	return name
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxNameLen {
			break
		}
	}
	return strings.TrimRight(b.String(), "-")
}
