package banners

import (
	"net/url"
	"time"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
	"github.com/maxidea1024/gatrix-sub012/internal/timesync"
)

const (
	List    = "banners"
	APIPath = "/api/v1/admin/banners"
)

// Resource binds banners to the console. Schedule status is judged on clock.
type Resource struct {
	*resources.Service[Banner]
	schema *liststate.Schema[Banner]
	clock  timesync.Clock
}

func New(client *backend.Client, cat *resources.Catalog, clock timesync.Clock) (*Resource, error) {
	r := &Resource{Service: resources.NewService[Banner](client, APIPath), clock: clock}
	schema, err := resources.Schema(cat, List,
		liststate.Field[Banner]{ID: "name", Searchable: true, Text: func(b Banner) string { return b.Name }},
		liststate.Field[Banner]{ID: "text", Searchable: true, Text: func(b Banner) string { return b.Text }},
		liststate.Field[Banner]{ID: "kind", Text: func(b Banner) string { return string(b.Kind) }},
		liststate.Field[Banner]{ID: "platforms", FilterKey: "platform", Values: func(b Banner) []string { return b.Platforms }},
		liststate.Field[Banner]{ID: "status", Text: r.Status},
		liststate.Field[Banner]{ID: "active", Text: func(b Banner) string { return resources.BoolText(b.Active) }},
		liststate.Field[Banner]{
			ID:      "startsAt",
			Text:    func(b Banner) string { return resources.TimeText(b.StartsAt) },
			Compare: func(a, b Banner) int { return resources.CompareTime(a.StartsAt, b.StartsAt) },
		},
		liststate.Field[Banner]{
			ID:      "endsAt",
			Text:    func(b Banner) string { return resources.TimeText(b.EndsAt) },
			Compare: func(a, b Banner) int { return resources.CompareTime(a.EndsAt, b.EndsAt) },
		},
		liststate.Field[Banner]{
			ID:      "updatedAt",
			Text:    func(b Banner) string { return resources.TimeText(b.UpdatedAt) },
			Compare: func(a, b Banner) int { return resources.CompareTime(a.UpdatedAt, b.UpdatedAt) },
		},
	)
	if err != nil {
		return nil, err
	}
	r.schema = schema
	return r, nil
}

// Status is the schedule status at the backend's current time.
func (r *Resource) Status(b Banner) string {
	return resources.ScheduleStatus(r.clock.Now(), b.Active, b.StartsAt, b.EndsAt)
}

func (r *Resource) List() string                      { return List }
func (r *Resource) Schema() *liststate.Schema[Banner] { return r.schema }
func (r *Resource) Key(b Banner) string               { return b.ID }
func (r *Resource) Describe(b Banner) string          { return b.Name }
func (r *Resource) Enabled(b Banner) bool             { return b.Active }

func (r *Resource) Blank() Banner {
	return Banner{Kind: KindImage, StartsAt: r.clock.Now().UTC().Truncate(time.Minute)}
}

// Decode applies a submitted form onto base.
func (r *Resource) Decode(form url.Values, base Banner) Banner {
	b := base
	b.Name = resources.FormString(form, "name")
	b.Kind = Kind(resources.FormString(form, "kind"))
	b.ImageURL = ""
	b.Text = ""
	switch b.Kind {
	case KindImage:
		b.ImageURL = resources.FormString(form, "imageUrl")
	case KindText:
		b.Text = resources.FormString(form, "text")
	}
	b.LinkURL = resources.FormString(form, "linkUrl")
	b.Platforms = resources.FormList(form, "platforms")
	b.StartsAt = resources.FormTime(form, "startsAt", time.UTC)
	b.EndsAt = resources.FormTime(form, "endsAt", time.UTC)
	b.Active = resources.FormBool(form, "active")
	return b
}
