package content

import (
	"encoding/json"
	"strings"
)

// maxLinkDepth matches the include=2 hint sent to the delivery API: an event
// can reach its instructor, and the instructor its avatar asset.
const maxLinkDepth = 2

type sys struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	LinkType string `json:"linkType"`
}

type entry struct {
	Sys    sys             `json:"sys"`
	Fields json.RawMessage `json:"fields"`
}

type collection struct {
	Total    int     `json:"total"`
	Skip     int     `json:"skip"`
	Limit    int     `json:"limit"`
	Items    []entry `json:"items"`
	Includes struct {
		Entry []entry `json:"Entry"`
		Asset []entry `json:"Asset"`
	} `json:"includes"`
}

// eventFields is the typed shape of an event entry. Reference fields stay raw
// until the resolver follows them.
type eventFields struct {
	Title            string          `json:"title"`
	Date             string          `json:"date"`
	Time             string          `json:"time"`
	Format           string          `json:"format"`
	Location         string          `json:"location"`
	Description      string          `json:"description"`
	Image            json.RawMessage `json:"imageUrl"`
	XP               int             `json:"xp"`
	AttendeeLimit    int             `json:"attendeeLimit"`
	Tags             []string        `json:"tags"`
	Skills           []string        `json:"skills"`
	Requirements     []string        `json:"requirements"`
	Instructor       json.RawMessage `json:"instructor"`
	MeetingLink      string          `json:"meetingLink"`
	ExternalLink     string          `json:"externalLink"`
	Duration         string          `json:"duration"`
	Participants     int             `json:"participants"`
	LearningOutcomes []string        `json:"learningOutcomes"`
	Status           string          `json:"status"`
}

type instructorFields struct {
	Name      string          `json:"name"`
	Role      string          `json:"role"`
	Avatar    json.RawMessage `json:"avatar"`
	Bio       string          `json:"bio"`
	Expertise []string        `json:"expertise"`
}

type assetFields struct {
	Title string `json:"title"`
	File  struct {
		URL         string `json:"url"`
		ContentType string `json:"contentType"`
	} `json:"file"`
}

// resolver follows Link references against the includes of a collection.
type resolver struct {
	entries map[string]entry
	assets  map[string]entry
}

func newResolver(c *collection) *resolver {
	r := &resolver{
		entries: make(map[string]entry, len(c.Includes.Entry)+len(c.Items)),
		assets:  make(map[string]entry, len(c.Includes.Asset)),
	}
	for _, e := range c.Items {
		r.entries[e.Sys.ID] = e
	}
	for _, e := range c.Includes.Entry {
		r.entries[e.Sys.ID] = e
	}
	for _, a := range c.Includes.Asset {
		r.assets[a.Sys.ID] = a
	}
	return r
}

// resolve returns the fields of the entry or asset that raw refers to. raw may
// be a Link, an already embedded entry, or absent. depth counts the hops taken
// from the top-level item.
func (r *resolver) resolve(raw json.RawMessage, depth int) (json.RawMessage, bool) {
	if len(raw) == 0 || string(raw) == "null" || depth > maxLinkDepth {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, false
	}
	if e.Sys.Type != "Link" {
		return e.Fields, len(e.Fields) > 0
	}
	var target entry
	var ok bool
	switch e.Sys.LinkType {
	case "Entry":
		target, ok = r.entries[e.Sys.ID]
	case "Asset":
		target, ok = r.assets[e.Sys.ID]
	}
	if !ok {
		return nil, false
	}
	return target.Fields, true
}

// assetURL resolves an asset reference to its absolute URL. Plain string
// values are accepted as URLs.
func (r *resolver) assetURL(raw json.RawMessage, depth int) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return sanitizeURL(s)
	}
	fields, ok := r.resolve(raw, depth)
	if !ok {
		return ""
	}
	var a assetFields
	if err := json.Unmarshal(fields, &a); err != nil {
		return ""
	}
	return sanitizeURL(a.File.URL)
}

// sanitizeURL turns the protocol-relative URLs served by the asset CDN into
// https URLs.
func sanitizeURL(u string) string {
	u = strings.TrimSpace(u)
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}
