package service

import (
	"testing"

	"quotedesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func featureIDs(features []model.ProductFeature) []string {
	ids := make([]string, len(features))
	for i, f := range features {
		ids[i] = f.ID
	}
	return ids
}

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	assert.Len(t, c.Features(), 10)

	f, ok := c.Feature("feat-007")
	require.True(t, ok)
	assert.Equal(t, "Enterprise Support", f.Name)
	assert.Equal(t, 20000.0, f.BasePrice)

	_, ok = c.Feature("feat-404")
	assert.False(t, ok)
}

func TestFeaturesReturnsCopy(t *testing.T) {
	c := DefaultCatalog()
	features := c.Features()
	features[0].Name = "changed"

	f, _ := c.Feature(features[0].ID)
	assert.Equal(t, "Basic Integration", f.Name)
	assert.Equal(t, "Basic Integration", c.Features()[0].Name)
}

func TestFeaturesByCategory(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"feat-002", "feat-005"}, featureIDs(c.FeaturesByCategory("analytics")))
	assert.Empty(t, c.FeaturesByCategory("hardware"))
}

func TestSearch(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"feat-009"}, featureIDs(c.Search("MFA")))
	assert.Equal(t, []string{"feat-004"}, featureIDs(c.Search("notif")))
}

func TestMentionedFeatures(t *testing.T) {
	c := DefaultCatalog()

	got := c.MentionedFeatures("We'd like CUSTOM REPORTING, enterprise support and basic integration")
	assert.Equal(t, []string{"feat-001", "feat-005", "feat-007"}, featureIDs(got))

	assert.Empty(t, c.MentionedFeatures("just browsing"))
}

func TestHistoryFilter(t *testing.T) {
	c := DefaultCatalog()

	assert.Len(t, c.History(HistoryFilter{}), 5)
	assert.Len(t, c.History(HistoryFilter{Region: "europe"}), 2)
	assert.Len(t, c.History(HistoryFilter{Region: "europe", Industry: "finance"}), 1)
	assert.Len(t, c.History(HistoryFilter{ClientID: "client-003"}), 1)
	assert.Empty(t, c.History(HistoryFilter{Industry: "aerospace"}))
}
