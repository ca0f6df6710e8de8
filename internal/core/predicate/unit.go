package predicate

import "github.com/shopspring/decimal"

// Unit is the measurement unit a column stores.
type Unit int

const (
	UnitNone Unit = iota
	UnitAcres
	UnitSquareFeet
)

// SquareFeetPerAcre is the exact lot-size conversion factor.
var SquareFeetPerAcre = decimal.NewFromInt(43560)

// Convert rescales v from one area unit to another. Non-area units pass through.
func Convert(v decimal.Decimal, from, to Unit) decimal.Decimal {
	if from == to || from == UnitNone || to == UnitNone {
		return v
	}
	if from == UnitSquareFeet && to == UnitAcres {
		return v.Div(SquareFeetPerAcre)
	}
	return v.Mul(SquareFeetPerAcre)
}
