package service

import (
	"math"
	"math/rand"

	"quotedesk/internal/model"
)

const (
	defaultMargin = 1.15
	minMargin     = 1.12
	maxMargin     = 1.18
	// historical margins are perturbed by up to this fraction either way
	marginJitter = 0.02
	currencyUSD  = "USD"
)

// Pricer turns requirements into a quote: catalog list price times quantity,
// marked up by a margin learned from comparable past deals.
type Pricer struct {
	catalog *Catalog
	uniform func() float64
}

// NewPricer uses uniform, a source of values in [0, 1), for margin jitter.
// A nil uniform uses math/rand/v2.
func NewPricer(catalog *Catalog, uniform func() float64) *Pricer {
	if uniform == nil {
		uniform = rand.Float64
	}
	return &Pricer{
		catalog: catalog,
		uniform: uniform,
	}
}

// Margin averages the margin factor of deals matching filter, jitters it
// and clamps it to the allowed band. Without comparable deals it falls back
// to the default margin.
func (p *Pricer) Margin(filter HistoryFilter) float64 {
	deals := p.catalog.History(filter)
	if len(deals) == 0 {
		return defaultMargin
	}

	var sum float64
	for _, d := range deals {
		factor := d.MarginFactor
		if factor == 0 {
			factor = defaultMargin
		}
		sum += factor
	}
	margin := sum / float64(len(deals))
	margin *= 1 - marginJitter + 2*marginJitter*p.uniform()

	return math.Max(minMargin, math.Min(maxMargin, margin))
}

// Quote prices req. Requirements naming features outside the catalog are
// ignored.
func (p *Pricer) Quote(req *model.PricingRequest) *model.PricingQuote {
	var base float64
	breakdown := make(map[string]float64)

	for _, r := range req.Requirements {
		feature, ok := p.catalog.Feature(r.FeatureID)
		if !ok {
			continue
		}
		quantity := 1
		if r.Quantity != nil && *r.Quantity > 0 {
			quantity = *r.Quantity
		}
		item := feature.BasePrice * float64(quantity)
		base += item
		breakdown[feature.Name] += item
	}

	filter := HistoryFilter{
		Industry:    req.Industry,
		CompanySize: req.CompanySize,
		Region:      req.Region,
	}
	if req.ClientID != nil {
		filter.ClientID = *req.ClientID
	}
	margin := p.Margin(filter)

	return &model.PricingQuote{
		BasePrice:  roundCents(base),
		FinalPrice: roundCents(base * margin),
		Currency:   currencyUSD,
		Breakdown:  breakdown,
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
