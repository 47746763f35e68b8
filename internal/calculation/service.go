// Package calculation answers one-shot net result requests by hosting the
// operations form for the duration of a single call.
package calculation

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-liquido/internal/form"
	"github.com/noah-isme/backend-liquido/internal/obs"
	"github.com/noah-isme/backend-liquido/internal/pricing"
)

// Result is the outcome of a calculation.
type Result struct {
	Inputs           pricing.Inputs  `json:"inputs"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	NetResult        decimal.Decimal `json:"net_result"`
	Display          string          `json:"display"`
}

// Service runs calculations and counts them under Source.
type Service struct {
	Source string
}

// Calculate builds a page from the raw field texts, attaches the listener and
// recomputes once. Unknown keys are not part of the form and are ignored.
func (s Service) Calculate(values map[string]string) (Result, error) {
	cfg := form.DefaultConfig()
	page := form.NewPage(lo.PickByKeys(values, cfg.TrackedIDs()), cfg.DisplayID)

	listener, err := form.Setup(page, cfg)
	if err != nil {
		return Result{}, err
	}
	summary := listener.Recompute()
	if s.Source != "" {
		obs.RecordCalculation(s.Source)
	}
	return Result{
		Inputs:           listener.Inputs(),
		CommissionAmount: summary.CommissionAmount,
		NetResult:        summary.NetResult,
		Display:          page[cfg.DisplayID].Text(),
	}, nil
}
