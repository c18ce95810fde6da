package banners

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/entityform"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

var launch = time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

func newResource(t *testing.T) *Resource {
	t.Helper()
	cat, err := resources.DefaultCatalog()
	require.NoError(t, err)
	r, err := New(backend.NewClient("http://backend.invalid", "", time.Second), cat, fixedClock(launch))
	require.NoError(t, err)
	return r
}

func TestValidationDependsOnKind(t *testing.T) {
	v := entityform.NewValidator()
	base := Banner{Name: "Summer", StartsAt: launch}

	img := base
	img.Kind = KindImage
	assert.Equal(t, "is required", v.Validate(img)["imageUrl"])

	txt := base
	txt.Kind = KindText
	errs := v.Validate(txt)
	assert.Equal(t, "is required", errs["text"])
	assert.NotContains(t, errs, "imageUrl")

	txt.Text = "Double XP weekend"
	txt.EndsAt = launch.Add(-time.Hour)
	assert.Contains(t, v.Validate(txt), "endsAt")

	txt.EndsAt = launch.Add(time.Hour)
	txt.Platforms = []string{"pc", "switch"}
	assert.NotEmpty(t, v.Validate(txt))

	txt.Platforms = []string{"pc"}
	assert.Nil(t, v.Validate(txt))
}

func TestStatusUsesClock(t *testing.T) {
	r := newResource(t)
	rows := []Banner{
		{ID: "past", Active: true, StartsAt: launch.Add(-48 * time.Hour), EndsAt: launch.Add(-time.Hour)},
		{ID: "live", Active: true, StartsAt: launch.Add(-time.Hour)},
		{ID: "soon", Active: true, StartsAt: launch.Add(time.Hour)},
		{ID: "off", StartsAt: launch.Add(-time.Hour)},
	}
	assert.Equal(t, []string{"expired", "active", "scheduled", "inactive"}, []string{
		r.Status(rows[0]), r.Status(rows[1]), r.Status(rows[2]), r.Status(rows[3]),
	})

	got := r.Schema().Filter(rows, "", []liststate.ActiveFilter{{Key: "status", Values: []string{"active", "scheduled"}}})
	require.Len(t, got, 2)
	assert.Equal(t, "live", got[0].ID)
	assert.Equal(t, "soon", got[1].ID)
}

func TestDecodeDropsOtherKindContent(t *testing.T) {
	r := newResource(t)
	form := url.Values{
		"name":      {"Summer"},
		"kind":      {"text"},
		"imageUrl":  {"https://cdn.example.com/x.png"},
		"text":      {"Double XP"},
		"platforms": {"pc", "ios"},
		"startsAt":  {"2026-08-01T10:00"},
		"active":    {"on"},
	}
	b := r.Decode(form, r.Blank())
	assert.Equal(t, KindText, b.Kind)
	assert.Empty(t, b.ImageURL)
	assert.Equal(t, "Double XP", b.Text)
	assert.Equal(t, []string{"pc", "ios"}, b.Platforms)
	assert.True(t, b.StartsAt.Equal(launch))
	assert.True(t, b.EndsAt.IsZero())
	assert.True(t, b.Active)
}
