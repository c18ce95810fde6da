package surveys

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
	"github.com/maxidea1024/gatrix-sub012/internal/entityform"
	"github.com/maxidea1024/gatrix-sub012/internal/resources"
)

func TestSurveyValidation(t *testing.T) {
	v := entityform.NewValidator()

	s := Survey{Title: "Feedback", Kind: KindExternal}
	assert.Equal(t, "is required", v.Validate(s)["externalUrl"])

	s.ExternalURL = "ftp://example.com/form"
	assert.Contains(t, v.Validate(s), "externalUrl")

	s.ExternalURL = "https://forms.example.com/s/1"
	s.Rewards = []Reward{{ItemID: "gem", Quantity: 0}}
	errs := v.Validate(s)
	assert.Contains(t, errs, "rewards[0].quantity")

	s.Rewards[0].Quantity = 50
	assert.Nil(t, v.Validate(s))

	assert.Nil(t, v.Validate(Survey{Title: "In game", Kind: KindInGame}))
}

func TestSurveyDecode(t *testing.T) {
	cat, err := resources.DefaultCatalog()
	require.NoError(t, err)
	r, err := New(backend.NewClient("http://backend.invalid", "", time.Second), cat)
	require.NoError(t, err)

	s := r.Decode(url.Values{
		"title":       {"Feedback"},
		"kind":        {"in_game"},
		"externalUrl": {"https://ignored.example.com"},
		"rewardItem":  {"gem", " ", "coin"},
		"rewardQty":   {"5", "", "100"},
		"tags":        {"q3"},
	}, r.Blank())

	assert.Empty(t, s.ExternalURL)
	assert.Equal(t, []Reward{{ItemID: "gem", Quantity: 5}, {ItemID: "coin", Quantity: 100}}, s.Rewards)
	assert.Equal(t, "gem x5, coin x100", RewardsText(s))
	assert.Equal(t, "gem x5, coin x100", r.Schema().Cell(s, "rewards"))
}
