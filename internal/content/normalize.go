package content

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/itlightning/dateparse"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

// Dropped describes a catalog entry excluded from the result.
type Dropped struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// normalize maps every item of a collection onto model.Event. Entries that
// fail to decode or validate are reported in dropped and never defaulted.
func normalize(c *collection) (events []model.Event, dropped []Dropped) {
	r := newResolver(c)
	for _, item := range c.Items {
		e, err := normalizeEntry(r, item)
		if err != nil {
			dropped = append(dropped, Dropped{ID: item.Sys.ID, Reason: err.Error()})
			continue
		}
		events = append(events, *e)
	}
	return events, dropped
}

func normalizeEntry(r *resolver, item entry) (*model.Event, error) {
	var f eventFields
	if err := json.Unmarshal(item.Fields, &f); err != nil {
		return nil, fmt.Errorf("%w: decode fields: %v", model.ErrInvalidRecord, err)
	}

	status, err := model.ParseStatus(strings.TrimSpace(f.Status))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidRecord, err)
	}

	e := &model.Event{
		ID:               strings.TrimSpace(item.Sys.ID),
		Title:            strings.TrimSpace(f.Title),
		Date:             strings.TrimSpace(f.Date),
		StartsAt:         parseDate(f.Date),
		Time:             f.Time,
		Format:           f.Format,
		Location:         f.Location,
		Description:      f.Description,
		ImageURL:         r.assetURL(f.Image, 1),
		XP:               f.XP,
		Capacity:         f.AttendeeLimit,
		Tags:             nonEmpty(f.Tags),
		Skills:           nonEmpty(f.Skills),
		Requirements:     nonEmpty(f.Requirements),
		Instructor:       resolveInstructor(r, f.Instructor),
		LearningOutcomes: nonEmpty(f.LearningOutcomes),
		MeetingLink:      strings.TrimSpace(f.MeetingLink),
		ExternalLink:     strings.TrimSpace(f.ExternalLink),
		Duration:         f.Duration,
		Status:           status,
		Participants:     f.Participants,
	}

	if err := validateEvent(e); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidRecord, err)
	}
	return e, nil
}

func validateEvent(e *model.Event) error {
	return validation.ValidateStruct(e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.Title, validation.Required),
		validation.Field(&e.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&e.XP, validation.Min(0)),
		validation.Field(&e.Participants, validation.Min(0)),
		validation.Field(&e.MeetingLink, is.URL),
		validation.Field(&e.ExternalLink, is.URL),
	)
}

func resolveInstructor(r *resolver, raw json.RawMessage) model.Instructor {
	fields, ok := r.resolve(raw, 1)
	if !ok {
		return model.Instructor{Expertise: []string{}}
	}
	var f instructorFields
	if err := json.Unmarshal(fields, &f); err != nil {
		return model.Instructor{Expertise: []string{}}
	}
	return model.Instructor{
		Name:      f.Name,
		Role:      f.Role,
		Avatar:    r.assetURL(f.Avatar, 2),
		Bio:       f.Bio,
		Expertise: nonEmpty(f.Expertise),
	}
}

// parseDate accepts the loose date strings editors type into the CMS. An
// unparseable date leaves the event undated rather than invalid.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || t.Year() == 0 {
		return nil
	}
	t = t.UTC()
	return &t
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func sortEvents(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool { return events[i].Before(&events[j]) })
}
