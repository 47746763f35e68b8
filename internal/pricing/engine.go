package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Inputs holds the four values a sale is priced from, in currency units.
type Inputs struct {
	ContractValue     decimal.Decimal `json:"valor_contrato"`
	SettledValue      decimal.Decimal `json:"valor_quitado"`
	ProductCost       decimal.Decimal `json:"custo_produto"`
	CommissionPercent decimal.Decimal `json:"percentual_comissao"`
}

// Summary aggregates the derived components of a sale.
type Summary struct {
	CommissionFraction decimal.Decimal `json:"commission_fraction"`
	CommissionAmount   decimal.Decimal `json:"commission_amount"`
	NetResult          decimal.Decimal `json:"net_result"`
}

// CommissionFraction converts a whole-number percentage into a fraction.
func CommissionFraction(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(hundred)
}

// Compute derives the commission and the net result for the provided inputs.
// The net result is not clamped and may be negative.
func Compute(in Inputs) Summary {
	fraction := CommissionFraction(in.CommissionPercent)
	commission := in.ContractValue.Mul(fraction)
	net := in.ContractValue.
		Sub(in.SettledValue).
		Sub(commission).
		Sub(in.ProductCost)
	return Summary{
		CommissionFraction: fraction,
		CommissionAmount:   commission,
		NetResult:          net,
	}
}
