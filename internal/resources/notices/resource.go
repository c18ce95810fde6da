package notices

import (
	"net/url"
	"time"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
	"github.com/maxidea1024/gatrix-sub012/internal/timesync"
)

const (
	List    = "serviceNotices"
	APIPath = "/api/v1/admin/service-notices"
)

type Resource struct {
	*resources.Service[Notice]
	schema *liststate.Schema[Notice]
	clock  timesync.Clock
}

func New(client *backend.Client, cat *resources.Catalog, clock timesync.Clock) (*Resource, error) {
	r := &Resource{Service: resources.NewService[Notice](client, APIPath), clock: clock}
	schema, err := resources.Schema(cat, List,
		liststate.Field[Notice]{ID: "title", Searchable: true, Text: func(n Notice) string { return n.Title }},
		liststate.Field[Notice]{ID: "content", Searchable: true, Text: func(n Notice) string { return n.Content }},
		liststate.Field[Notice]{ID: "category", Text: func(n Notice) string { return string(n.Category) }},
		liststate.Field[Notice]{ID: "platforms", FilterKey: "platform", Values: func(n Notice) []string { return n.Platforms }},
		liststate.Field[Notice]{ID: "status", Text: r.Status},
		liststate.Field[Notice]{ID: "isPinned", Text: func(n Notice) string { return resources.BoolText(n.Pinned) }},
		liststate.Field[Notice]{
			ID:      "startsAt",
			Text:    func(n Notice) string { return resources.TimeText(n.StartsAt) },
			Compare: func(a, b Notice) int { return resources.CompareTime(a.StartsAt, b.StartsAt) },
		},
		liststate.Field[Notice]{
			ID:      "endsAt",
			Text:    func(n Notice) string { return resources.TimeText(n.EndsAt) },
			Compare: func(a, b Notice) int { return resources.CompareTime(a.EndsAt, b.EndsAt) },
		},
		liststate.Field[Notice]{
			ID:      "updatedAt",
			Text:    func(n Notice) string { return resources.TimeText(n.UpdatedAt) },
			Compare: func(a, b Notice) int { return resources.CompareTime(a.UpdatedAt, b.UpdatedAt) },
		},
	)
	if err != nil {
		return nil, err
	}
	r.schema = schema
	return r, nil
}

// Status is the schedule status at the backend's current time.
func (r *Resource) Status(n Notice) string {
	return resources.ScheduleStatus(r.clock.Now(), n.Active, n.StartsAt, n.EndsAt)
}

func (r *Resource) List() string                      { return List }
func (r *Resource) Schema() *liststate.Schema[Notice] { return r.schema }
func (r *Resource) Key(n Notice) string               { return n.ID }
func (r *Resource) Describe(n Notice) string          { return n.Title }
func (r *Resource) Enabled(n Notice) bool             { return n.Active }

func (r *Resource) Blank() Notice {
	return Notice{
		Category:  CategoryNotice,
		Platforms: []string{"pc", "android", "ios"},
		StartsAt:  r.clock.Now().UTC().Truncate(time.Minute),
	}
}

func (r *Resource) Decode(form url.Values, base Notice) Notice {
	n := base
	n.Title = resources.FormString(form, "title")
	n.Category = Category(resources.FormString(form, "category"))
	n.Content = resources.FormString(form, "content")
	n.Platforms = resources.FormList(form, "platforms")
	n.StartsAt = resources.FormTime(form, "startsAt", time.UTC)
	n.EndsAt = resources.FormTime(form, "endsAt", time.UTC)
	n.Active = resources.FormBool(form, "active")
	n.Pinned = resources.FormBool(form, "isPinned")
	return n
}
