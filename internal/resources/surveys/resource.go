package surveys

import (
	"cmp"
	"fmt"
	"net/url"
	"strings"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
)

const (
	List    = "surveys"
	APIPath = "/api/v1/admin/surveys"
)

type Resource struct {
	*resources.Service[Survey]
	schema *liststate.Schema[Survey]
}

func New(client *backend.Client, cat *resources.Catalog) (*Resource, error) {
	schema, err := resources.Schema(cat, List,
		liststate.Field[Survey]{ID: "title", Searchable: true, Text: func(s Survey) string { return s.Title }},
		liststate.Field[Survey]{ID: "description", Searchable: true, Text: func(s Survey) string { return s.Description }},
		liststate.Field[Survey]{ID: "kind", Text: func(s Survey) string { return string(s.Kind) }},
		liststate.Field[Survey]{
			ID:      "rewards",
			Text:    RewardsText,
			Compare: func(a, b Survey) int { return cmp.Compare(len(a.Rewards), len(b.Rewards)) },
		},
		liststate.Field[Survey]{ID: "tags", FilterKey: "tag", Searchable: true, Values: func(s Survey) []string { return s.Tags }},
		liststate.Field[Survey]{ID: "active", Text: func(s Survey) string { return resources.BoolText(s.Active) }},
		liststate.Field[Survey]{
			ID:      "updatedAt",
			Text:    func(s Survey) string { return resources.TimeText(s.UpdatedAt) },
			Compare: func(a, b Survey) int { return resources.CompareTime(a.UpdatedAt, b.UpdatedAt) },
		},
	)
	if err != nil {
		return nil, err
	}
	return &Resource{Service: resources.NewService[Survey](client, APIPath), schema: schema}, nil
}

// RewardsText renders rewards as "item x qty" pairs.
func RewardsText(s Survey) string {
	parts := make([]string, 0, len(s.Rewards))
	for _, r := range s.Rewards {
		parts = append(parts, fmt.Sprintf("%s x%d", r.ItemID, r.Quantity))
	}
	return strings.Join(parts, ", ")
}

func (r *Resource) List() string                      { return List }
func (r *Resource) Schema() *liststate.Schema[Survey] { return r.schema }
func (r *Resource) Key(s Survey) string               { return s.ID }
func (r *Resource) Describe(s Survey) string          { return s.Title }
func (r *Resource) Enabled(s Survey) bool             { return s.Active }
func (r *Resource) Blank() Survey                     { return Survey{Kind: KindInGame} }

func (r *Resource) Decode(form url.Values, base Survey) Survey {
	s := base
	s.Title = resources.FormString(form, "title")
	s.Description = resources.FormString(form, "description")
	s.Kind = Kind(resources.FormString(form, "kind"))
	s.ExternalURL = ""
	if s.Kind == KindExternal {
		s.ExternalURL = resources.FormString(form, "externalUrl")
	}
	s.Rewards = decodeRewards(form)
	s.Tags = resources.FormList(form, "tags")
	s.Active = resources.FormBool(form, "active")
	return s
}

// decodeRewards zips the repeated rewardItem and rewardQty inputs.
func decodeRewards(form url.Values) []Reward {
	items := form["rewardItem"]
	qty := form["rewardQty"]
	var out []Reward
	for i, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		rw := Reward{ItemID: item}
		if i < len(qty) {
			rw.Quantity = resources.FormInt(url.Values{"q": {qty[i]}}, "q")
		}
		out = append(out, rw)
	}
	return out
}
