package service

import (
	"strings"

	"quotedesk/internal/model"
)

// Catalog is the product and deal history the quoting service prices from.
type Catalog struct {
	features []model.ProductFeature
	byID     map[string]model.ProductFeature
	history  []model.PricingHistory
}

func NewCatalog(features []model.ProductFeature, history []model.PricingHistory) *Catalog {
	byID := make(map[string]model.ProductFeature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}
	return &Catalog{
		features: features,
		byID:     byID,
		history:  history,
	}
}

// DefaultCatalog is the built-in demo catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultFeatures, defaultHistory)
}

func (c *Catalog) Features() []model.ProductFeature {
	out := make([]model.ProductFeature, len(c.features))
	copy(out, c.features)
	return out
}

func (c *Catalog) Feature(id string) (model.ProductFeature, bool) {
	f, ok := c.byID[id]
	return f, ok
}

func (c *Catalog) FeaturesByCategory(category string) []model.ProductFeature {
	var out []model.ProductFeature
	for _, f := range c.features {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// Search matches query against feature names and descriptions.
func (c *Catalog) Search(query string) []model.ProductFeature {
	query = strings.ToLower(query)
	var out []model.ProductFeature
	for _, f := range c.features {
		if strings.Contains(strings.ToLower(f.Name), query) ||
			strings.Contains(strings.ToLower(f.Description), query) {
			out = append(out, f)
		}
	}
	return out
}

// MentionedFeatures returns every feature whose name occurs in text,
// case-insensitively, in catalog order.
func (c *Catalog) MentionedFeatures(text string) []model.ProductFeature {
	text = strings.ToLower(text)
	var out []model.ProductFeature
	for _, f := range c.features {
		if strings.Contains(text, strings.ToLower(f.Name)) {
			out = append(out, f)
		}
	}
	return out
}

// HistoryFilter narrows historical deals; empty fields match everything.
type HistoryFilter struct {
	ClientID    string
	Industry    string
	CompanySize string
	Region      string
}

func (c *Catalog) History(filter HistoryFilter) []model.PricingHistory {
	var out []model.PricingHistory
	for _, h := range c.history {
		if filter.ClientID != "" && h.ClientID != filter.ClientID {
			continue
		}
		if filter.Industry != "" && h.Industry != filter.Industry {
			continue
		}
		if filter.CompanySize != "" && h.CompanySize != filter.CompanySize {
			continue
		}
		if filter.Region != "" && h.Region != filter.Region {
			continue
		}
		out = append(out, h)
	}
	return out
}

var defaultFeatures = []model.ProductFeature{
	{ID: "feat-001", Name: "Basic Integration", Description: "Standard API integration with your existing systems", BasePrice: 10000, Category: "integration"},
	{ID: "feat-002", Name: "Advanced Analytics", Description: "Comprehensive data analysis and visualization tools", BasePrice: 15000, IsAddon: true, Category: "analytics"},
	{ID: "feat-003", Name: "Multi-user Access", Description: "Support for multiple user accounts with role-based access control", BasePrice: 5000, Category: "access"},
	{ID: "feat-004", Name: "Real-time Notifications", Description: "Instant alerts and notifications for critical events", BasePrice: 3000, IsAddon: true, Category: "communication"},
	{ID: "feat-005", Name: "Custom Reporting", Description: "Tailored reports based on your business requirements", BasePrice: 8000, IsAddon: true, Category: "analytics"},
	{ID: "feat-006", Name: "Mobile Access", Description: "Access your data on the go with mobile applications", BasePrice: 7000, IsAddon: true, Category: "access"},
	{ID: "feat-007", Name: "Enterprise Support", Description: "24/7 premium support with dedicated account manager", BasePrice: 20000, IsAddon: true, Category: "support"},
	{ID: "feat-008", Name: "Data Migration", Description: "Complete transfer of your existing data to our platform", BasePrice: 12000, Category: "integration"},
	{ID: "feat-009", Name: "Advanced Security", Description: "Enhanced security features including MFA and encryption", BasePrice: 9000, IsAddon: true, Category: "security"},
	{ID: "feat-010", Name: "Customization", Description: "Tailor the platform to your specific business needs", BasePrice: 25000, IsAddon: true, Category: "customization"},
}

var defaultHistory = []model.PricingHistory{
	{ClientID: "client-001", Industry: "healthcare", CompanySize: "large", Region: "north_america", Features: []string{"feat-001", "feat-003", "feat-008", "feat-009"}, BasePrice: 36000, FinalPrice: 41400, MarginFactor: 1.15},
	{ClientID: "client-002", Industry: "finance", CompanySize: "medium", Region: "europe", Features: []string{"feat-001", "feat-002", "feat-003", "feat-005"}, BasePrice: 38000, FinalPrice: 43700, MarginFactor: 1.15},
	{ClientID: "client-003", Industry: "technology", CompanySize: "small", Region: "asia", Features: []string{"feat-001", "feat-003", "feat-006"}, BasePrice: 22000, FinalPrice: 24200, MarginFactor: 1.10},
	{ClientID: "client-004", Industry: "retail", CompanySize: "large", Region: "north_america", Features: []string{"feat-001", "feat-002", "feat-003", "feat-004", "feat-005", "feat-009"}, BasePrice: 50000, FinalPrice: 58500, MarginFactor: 1.17},
	{ClientID: "client-005", Industry: "manufacturing", CompanySize: "medium", Region: "europe", Features: []string{"feat-001", "feat-003", "feat-008", "feat-010"}, BasePrice: 52000, FinalPrice: 59800, MarginFactor: 1.15},
}
