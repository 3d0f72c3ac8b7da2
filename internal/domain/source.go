package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Source is a configured RSS/Atom feed.
type Source struct {
	ID   string
	Name string
	URL  string
}

// NewSource validates name and feed url. A missing id is generated.
func NewSource(id, name, feedURL string) (Source, error) {
	name = strings.TrimSpace(name)
	feedURL = strings.TrimSpace(feedURL)

	if name == "" || feedURL == "" {
		return Source{}, fmt.Errorf("%w: name and url are required", ErrInvalidSource)
	}

	parsed, err := url.Parse(feedURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return Source{}, fmt.Errorf("%w: invalid url format %q", ErrInvalidSource, feedURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Source{}, fmt.Errorf("%w: unsupported url scheme %q", ErrInvalidSource, parsed.Scheme)
	}

	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}

	return Source{ID: id, Name: name, URL: feedURL}, nil
}
