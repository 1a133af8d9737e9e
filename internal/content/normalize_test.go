package content

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

func loadFixture(t *testing.T) *collection {
	t.Helper()
	raw, err := os.ReadFile("testdata/entries.json")
	require.NoError(t, err)
	var c collection
	require.NoError(t, json.Unmarshal(raw, &c))
	return &c
}

func TestNormalizeDropsInvalidEntries(t *testing.T) {
	events, dropped := normalize(loadFixture(t))

	require.Len(t, events, 2)
	require.Len(t, dropped, 2)

	ids := []string{dropped[0].ID, dropped[1].ID}
	assert.ElementsMatch(t, []string{"untitled", "bad-limit"}, ids)
	for _, d := range dropped {
		assert.NotEmpty(t, d.Reason)
	}
}

func TestNormalizeResolvesLinks(t *testing.T) {
	events, _ := normalize(loadFixture(t))

	var lecture model.Event
	for _, e := range events {
		if e.ID == "aiux-lecture" {
			lecture = e
		}
	}
	require.Equal(t, "aiux-lecture", lecture.ID)

	assert.Equal(t, "AI/UX Lecture", lecture.Title)
	assert.Equal(t, 200, lecture.Capacity)
	assert.Equal(t, 500, lecture.XP)
	assert.Equal(t, model.StatusPublished, lecture.Status)
	assert.Equal(t, "https://images.ctfassets.net/space/hero.mp4", lecture.ImageURL)
	assert.Equal(t, []string{"AI", "UX", "Design"}, lecture.Tags)
	assert.Equal(t, "Ming-Hui Wen", lecture.Instructor.Name)
	assert.Equal(t, "https://images.ctfassets.net/space/speaker.jpg", lecture.Instructor.Avatar)
	assert.Equal(t, []string{"AI/UX Integration", "Design Systems"}, lecture.Instructor.Expertise)
	require.NotNil(t, lecture.StartsAt)
	assert.Equal(t, time.Date(2024, 12, 8, 0, 0, 0, 0, time.UTC), *lecture.StartsAt)
}

func TestNormalizeUnresolvedInstructor(t *testing.T) {
	events, _ := normalize(loadFixture(t))

	var workshop model.Event
	for _, e := range events {
		if e.ID == "ux3-workshop" {
			workshop = e
		}
	}
	require.Equal(t, "ux3-workshop", workshop.ID)
	assert.Empty(t, workshop.Instructor.Name)
	assert.NotNil(t, workshop.Instructor.Expertise)
	assert.Equal(t, "/3.jpg", workshop.ImageURL)
	assert.Equal(t, 970, workshop.Participants)
}

func TestValidateEvent(t *testing.T) {
	valid := func() *model.Event {
		return &model.Event{ID: "e", Title: "T", Capacity: 1}
	}

	tests := []struct {
		name   string
		mutate func(e *model.Event)
		field  string
	}{
		{"missing title", func(e *model.Event) { e.Title = "" }, "title"},
		{"missing id", func(e *model.Event) { e.ID = "" }, "id"},
		{"zero capacity", func(e *model.Event) { e.Capacity = 0 }, "capacity"},
		{"negative xp", func(e *model.Event) { e.XP = -10 }, "xp"},
		{"bad meeting link", func(e *model.Event) { e.MeetingLink = "not a url" }, "meeting_link"},
	}
	require.NoError(t, validateEvent(valid()))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid()
			tt.mutate(e)
			err := validateEvent(e)
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.field), err.Error())
		})
	}
}

func TestNormalizeUnknownStatus(t *testing.T) {
	c := &collection{Items: []entry{{
		Sys:    sys{ID: "e1"},
		Fields: json.RawMessage(`{"title":"T","attendeeLimit":3,"status":"archived"}`),
	}}}
	events, dropped := normalize(c)
	assert.Empty(t, events)
	require.Len(t, dropped, 1)
	assert.Contains(t, dropped[0].Reason, "archived")
}

func TestParseDate(t *testing.T) {
	assert.Nil(t, parseDate(""))
	assert.Nil(t, parseDate("Flexible"))

	got := parseDate("2024-03-15")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *got)
}

func TestSanitizeURL(t *testing.T) {
	assert.Equal(t, "https://cdn/x.jpg", sanitizeURL("//cdn/x.jpg"))
	assert.Equal(t, "https://cdn/x.jpg", sanitizeURL("https://cdn/x.jpg"))
	assert.Equal(t, "", sanitizeURL(""))
}

func TestResolverDepthLimit(t *testing.T) {
	r := newResolver(&collection{})
	link := json.RawMessage(`{"sys":{"type":"Link","linkType":"Entry","id":"x"}}`)
	_, ok := r.resolve(link, maxLinkDepth+1)
	assert.False(t, ok)
	_, ok = r.resolve(link, 1)
	assert.False(t, ok, "unknown link ids are unresolved")
}
