/*
gratuity.go - End-of-service gratuity calculation

PURPOSE:
  Computes gross and net EOS gratuity from basic salary, service years,
  and termination type.

GROSS FORMULA (Article 84, half/full month per year):
  first min(serviceYears, 5) years: 0.5 * basicSalary per year
  years beyond 5:                   1.0 * basicSalary per year

  Gratuity is computed on BASIC salary only. Leave valuation uses total
  salary; the two rates are a deliberate legal distinction.

ENTITLEMENT RATIO (Article 85, resignation penalty):
  RESIGNATION  < 2 years   -> 0
  RESIGNATION  [2, 5)      -> 1/3
  RESIGNATION  [5, 10)     -> 2/3
  RESIGNATION  >= 10       -> 1
  TERMINATION / CONTRACT_END -> 1 (any tenure)
  unset / other              -> 1 (default full ratio)

  netEOS = grossEOS * ratio
*/
package entitlement

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	half     = decimal.NewFromFloat(0.5)
	one      = decimal.NewFromInt(1)
	oneThird = decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	twoThird = decimal.NewFromInt(2).Div(decimal.NewFromInt(3))
)

// Gratuity is the EOS Gratuity Calculator output.
type Gratuity struct {
	GrossEOS         decimal.Decimal
	EntitlementRatio decimal.Decimal
	NetEOS           decimal.Decimal
}

// GrossEOS applies the tiered half/full-month rule to basic salary.
// Negative service years flow through and produce negative gratuity;
// callers flag that as a data-integrity problem rather than this
// function flooring it away.
func GrossEOS(basicSalary decimal.Decimal, serviceYears float64) decimal.Decimal {
	firstPeriod := math.Min(serviceYears, 5)
	gross := decimal.NewFromFloat(firstPeriod).Mul(half).Mul(basicSalary)
	if serviceYears > 5 {
		gross = gross.Add(decimal.NewFromFloat(serviceYears - 5).Mul(basicSalary))
	}
	return gross
}

// EntitlementRatio dispatches the closed termination enum through the
// Article 85 table. All non-resignation causes, including the unset
// zero value, take the full ratio.
func EntitlementRatio(t TerminationType, serviceYears float64) decimal.Decimal {
	if t != TerminationResignation {
		return one
	}
	switch {
	case serviceYears < 2:
		return decimal.Zero
	case serviceYears < 5:
		return oneThird
	case serviceYears < 10:
		return twoThird
	default:
		return one
	}
}

// ComputeGratuity combines the gross formula with the ratio table.
func ComputeGratuity(basicSalary decimal.Decimal, serviceYears float64, t TerminationType) Gratuity {
	gross := GrossEOS(basicSalary, serviceYears)
	ratio := EntitlementRatio(t, serviceYears)
	return Gratuity{
		GrossEOS:         gross,
		EntitlementRatio: ratio,
		NetEOS:           gross.Mul(ratio),
	}
}
