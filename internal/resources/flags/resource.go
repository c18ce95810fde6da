package flags

import (
	"net/url"
	"strings"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/liststate"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
)

const (
	// List is the list identity used for preference keys.
	List = "features"
	// APIPath is the backend collection.
	APIPath = "/api/v1/admin/features"
)

// Resource binds flags to the console.
type Resource struct {
	*resources.Service[Flag]
	schema *liststate.Schema[Flag]
}

func New(client *backend.Client, cat *resources.Catalog) (*Resource, error) {
	schema, err := resources.Schema(cat, List,
		liststate.Field[Flag]{ID: "key", Searchable: true, Text: func(f Flag) string { return f.Key }},
		liststate.Field[Flag]{ID: "name", Searchable: true, Text: func(f Flag) string { return f.Name }},
		liststate.Field[Flag]{ID: "description", Searchable: true, Text: func(f Flag) string { return f.Description }},
		liststate.Field[Flag]{ID: "type", Text: func(f Flag) string { return string(f.Type) }},
		liststate.Field[Flag]{ID: "environment", Text: func(f Flag) string { return f.Environment }},
		liststate.Field[Flag]{ID: "enabled", Text: func(f Flag) string { return resources.BoolText(f.Enabled) }},
		liststate.Field[Flag]{ID: "tags", FilterKey: "tag", Searchable: true, Values: func(f Flag) []string { return f.Tags }},
		liststate.Field[Flag]{
			ID:      "updatedAt",
			Text:    func(f Flag) string { return resources.TimeText(f.UpdatedAt) },
			Compare: func(a, b Flag) int { return resources.CompareTime(a.UpdatedAt, b.UpdatedAt) },
		},
	)
	if err != nil {
		return nil, err
	}
	return &Resource{Service: resources.NewService[Flag](client, APIPath), schema: schema}, nil
}

func (r *Resource) List() string                    { return List }
func (r *Resource) Schema() *liststate.Schema[Flag] { return r.schema }
func (r *Resource) Key(f Flag) string               { return f.ID }
func (r *Resource) Enabled(f Flag) bool             { return f.Enabled }
func (r *Resource) Blank() Flag                     { return Flag{Type: TypeRelease, Environment: "development"} }

func (r *Resource) Describe(f Flag) string {
	if f.Name != "" {
		return f.Name
	}
	return f.Key
}

// Decode applies a submitted form onto base.
func (r *Resource) Decode(form url.Values, base Flag) Flag {
	f := base
	f.Key = resources.FormString(form, "key")
	f.Name = resources.FormString(form, "name")
	f.Description = resources.FormString(form, "description")
	f.Type = Type(resources.FormString(form, "type"))
	f.Enabled = resources.FormBool(form, "enabled")
	f.Environment = resources.FormString(form, "environment")
	f.Tags = resources.FormList(form, "tags")
	f.Variants = nil
	if f.Type == TypeExperiment {
		f.Variants = decodeVariants(form)
	}
	return f
}

// decodeVariants zips the repeated variantName and variantWeight inputs.
func decodeVariants(form url.Values) []Variant {
	names := form["variantName"]
	weights := form["variantWeight"]
	var out []Variant
	for i, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		v := Variant{Name: name}
		if i < len(weights) {
			v.Weight = resources.FormInt(url.Values{"w": {weights[i]}}, "w")
		}
		out = append(out, v)
	}
	return out
}
