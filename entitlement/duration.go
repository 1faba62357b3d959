/*
duration.go - Fractional service-year calculation

PURPOSE:
  Converts hire/end dates into a fractional service duration in years.
  Every downstream figure (accrued leave, gratuity tiers, ratio table)
  keys off this number, so the divisor matters.

THE 365.25 RULE:
  serviceYears = (end - hire) / 365.25 days

  The 365.25-day year deliberately ignores leap-year edge effects. It must
  not be "improved" to 365 or 366: doing so shifts every gratuity and
  leave figure in the system.

NEGATIVE DURATIONS:
  An end date before the hire date yields negative service years. The
  calculator does not clamp; it reports the negative value and callers
  surface a data-integrity warning. Flooring to zero here would silently
  hide broken records.
*/
package entitlement

import "time"

// hoursPerYear encodes the 365.25-day service year.
const hoursPerYear = 24 * 365.25

// ServiceYears returns the fractional service duration from hireDate to
// the employee's end date, or to asOf when no end date is set. asOf is
// the caller-supplied calculation date; "now" is resolved at the boundary,
// never here.
//
// A zero hireDate is an InvalidDateError: it means the source record never
// carried a parseable date, and producing NaN-like garbage downstream is
// worse than failing.
func ServiceYears(hireDate time.Time, endDate *time.Time, asOf time.Time) (float64, error) {
	if hireDate.IsZero() {
		return 0, &InvalidDateError{Field: "hireDate", Value: hireDate.String()}
	}

	end := asOf
	if endDate != nil {
		if endDate.IsZero() {
			return 0, &InvalidDateError{Field: "endDate", Value: endDate.String()}
		}
		end = *endDate
	}

	return end.Sub(hireDate).Hours() / hoursPerYear, nil
}
