package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/spotiq/internal/shared"
)

// IDLength is the length of a base-62 Spotify identifier.
const IDLength = 22

// Kind is the type of Spotify resource an identifier refers to.
type Kind int

const (
	KindTrack Kind = iota + 1
	KindPlaylist
	KindAlbum
)

func (k Kind) String() string {
	switch k {
	case KindTrack:
		return "track"
	case KindPlaylist:
		return "playlist"
	case KindAlbum:
		return "album"
	default:
		return "unknown"
	}
}

// IsCollection reports whether the kind expands into child tracks.
func (k Kind) IsCollection() bool {
	return k == KindPlaylist || k == KindAlbum
}

// ParseKind converts a URI/URL path segment into a [Kind].
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "track":
		return KindTrack, true
	case "playlist":
		return KindPlaylist, true
	case "album":
		return KindAlbum, true
	default:
		return 0, false
	}
}

var (
	uriPattern = regexp.MustCompile(`^spotify:([a-z]+):([A-Za-z0-9]{22})$`)
	urlPattern = regexp.MustCompile(`^https://open\.spotify\.com/(?:intl-[a-zA-Z-]+/)?([a-z]+)/([A-Za-z0-9]{22})/?(?:[?#].*)?$`)
)

// ResourceID identifies a track, playlist or album.
//
// It is a comparable value and is safe to use as a map key. The zero value is invalid.
type ResourceID struct {
	Kind Kind
	ID   string
}

// NewResourceID validates kind and id and builds a [ResourceID].
func NewResourceID(kind Kind, id string) (ResourceID, error) {
	return ParseResourceID("spotify:" + kind.String() + ":" + id)
}

// ParseResourceID parses a canonical spotify:<kind>:<id> URI.
func ParseResourceID(uri string) (ResourceID, error) {
	m := uriPattern.FindStringSubmatch(strings.TrimSpace(uri))
	if m == nil {
		return ResourceID{}, fmt.Errorf("%w: %q", shared.ErrInvalidResourceID, uri)
	}

	kind, ok := ParseKind(m[1])
	if !ok {
		return ResourceID{}, fmt.Errorf("%w: unsupported kind %q", shared.ErrInvalidResourceID, m[1])
	}

	return ResourceID{Kind: kind, ID: m[2]}, nil
}

// ParseResourceURL parses an https://open.spotify.com/<kind>/<id> link.
//
// Query strings (share links carry ?si=...) and locale prefixes (intl-de/) are ignored.
func ParseResourceURL(url string) (ResourceID, error) {
	m := urlPattern.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return ResourceID{}, fmt.Errorf("%w: %q", shared.ErrInvalidResourceURL, url)
	}

	id, err := ParseResourceID("spotify:" + m[1] + ":" + m[2])
	if err != nil {
		return ResourceID{}, fmt.Errorf("%w: %w", shared.ErrInvalidResourceURL, err)
	}
	return id, nil
}

// ParseResource accepts either a canonical URI or an open.spotify.com URL.
func ParseResource(s string) (ResourceID, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "spotify:") {
		return ParseResourceID(s)
	}
	return ParseResourceURL(s)
}

// String returns the canonical spotify:<kind>:<id> form.
func (r ResourceID) String() string {
	return "spotify:" + r.Kind.String() + ":" + r.ID
}

// URL returns the open.spotify.com link for the resource.
func (r ResourceID) URL() string {
	return "https://open.spotify.com/" + r.Kind.String() + "/" + r.ID
}

// IsZero reports whether r is the zero value.
func (r ResourceID) IsZero() bool {
	return r == ResourceID{}
}

// MarshalText implements [encoding.TextMarshaler] using the canonical URI.
func (r ResourceID) MarshalText() ([]byte, error) {
	if r.IsZero() {
		return []byte{}, nil
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (r *ResourceID) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = ResourceID{}
		return nil
	}
	id, err := ParseResourceID(string(text))
	if err != nil {
		return err
	}
	*r = id
	return nil
}
