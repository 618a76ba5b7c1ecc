package source

import (
	"fmt"
	"net/url"
	"strings"
)

const exportBase = "https://docs.google.com/spreadsheets/d/"

// Link identifies a drive spreadsheet and optionally one of its tabs.
type Link struct {
	ID  string
	GID string
}

// ParseLink accepts a share link such as
// https://docs.google.com/spreadsheets/d/<id>/edit?gid=<gid>#gid=<gid>
// or a bare spreadsheet identifier.
func ParseLink(s string) (Link, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Link{}, ErrEmptyLink
	}
	if !strings.Contains(s, "/d/") {
		return Link{ID: s}, nil
	}

	rest := s[strings.Index(s, "/d/")+len("/d/"):]
	id := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		id = rest[:i]
	}
	if id == "" {
		return Link{}, fmt.Errorf("%w: no identifier in %q", ErrEmptyLink, s)
	}

	l := Link{ID: id}
	if u, err := url.Parse(s); err == nil {
		l.GID = u.Query().Get("gid")
		if l.GID == "" && u.Fragment != "" {
			if q, err := url.ParseQuery(u.Fragment); err == nil {
				l.GID = q.Get("gid")
			}
		}
	}
	return l, nil
}

// ExportURL returns the direct download URL for the given export format.
func (l Link) ExportURL(f Format) string {
	u := exportBase + url.PathEscape(l.ID) + "/export?format=" + string(f)
	if l.GID != "" {
		u += "&gid=" + url.QueryEscape(l.GID)
	}
	return u
}

func (l Link) String() string {
	if l.GID == "" {
		return l.ID
	}
	return l.ID + "#gid=" + l.GID
}
