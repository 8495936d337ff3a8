package worktime

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// DefaultHoursLabel is the unit appended to every converted amount.
const DefaultHoursLabel = "h"

// daysPerYear accounts for leap years when spreading vacation over months.
const daysPerYear = 365.25

// Wage is the value of one hour of work in the reference currency.
type Wage float64

// Valid reports whether w can be divided by: finite and strictly positive.
func (w Wage) Valid() bool {
	f := float64(w)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// String formats the wage with two decimals.
func (w Wage) String() string {
	return formatFixed2(float64(w))
}

// Settings are the user's income and working time inputs from which a Wage is
// derived.
type Settings struct {
	MonthlyIncome       float64 `mapstructure:"monthlyIncome" json:"monthlyIncome" yaml:"monthlyIncome"`
	WeeklyWorkdays      float64 `mapstructure:"weeklyWorkdays" json:"weeklyWorkdays" yaml:"weeklyWorkdays"`
	DailyWorkHours      float64 `mapstructure:"dailyWorkHours" json:"dailyWorkHours" yaml:"dailyWorkHours"`
	DailyCommuteMinutes float64 `mapstructure:"dailyCommuteMinutes" json:"dailyCommuteMinutes" yaml:"dailyCommuteMinutes"`
	MonthlyCommuteCost  float64 `mapstructure:"monthlyCommuteCost" json:"monthlyCommuteCost" yaml:"monthlyCommuteCost"`
	VacationDays        float64 `mapstructure:"vacationDays" json:"vacationDays" yaml:"vacationDays"`
}

// MonthlyWorkHours is the average number of hours per month spent working or
// commuting.
func (s Settings) MonthlyWorkHours() float64 {
	return ((daysPerYear - s.VacationDays) / 12 / 7) * s.WeeklyWorkdays *
		(s.DailyWorkHours + s.DailyCommuteMinutes/60)
}

// ComputeWage derives the hourly wage from settings: net monthly income
// (income minus commute cost) divided by monthly work hours.
func ComputeWage(s *Settings) (Wage, error) {
	if s == nil {
		return 0, ErrNoSettings
	}
	hours := s.MonthlyWorkHours()
	if hours == 0 {
		return 0, ErrZeroWorkHours
	}
	w := Wage((s.MonthlyIncome - s.MonthlyCommuteCost) / hours)
	if !w.Valid() {
		return 0, fmt.Errorf("%w: computed %v from net income %v over %v hours",
			ErrInvalidWage, float64(w), s.MonthlyIncome-s.MonthlyCommuteCost, hours)
	}
	return w, nil
}

// ToHours converts an amount in the reference currency into a work time label
// such as "1.80 h". The caller is responsible for passing a valid wage.
func ToHours(amount float64, wage Wage, label string) string {
	if label == "" {
		label = DefaultHoursLabel
	}
	return formatFixed2(amount/float64(wage)) + " " + label
}

var (
	hundred = big.NewRat(100, 1)
	half    = big.NewRat(1, 2)
)

// formatFixed2 renders x with exactly two fractional digits. Exact ties round
// away from zero, and NaN and infinities are spelled out, matching
// Number.prototype.toFixed(2).
func formatFixed2(x float64) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	case math.Abs(x) >= 1e21:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}

	sign := ""
	if x < 0 {
		sign = "-"
		x = -x
	}
	// The decimal expansion of a float64 is exact, so a tie is detected exactly.
	r := new(big.Rat).SetFloat64(x)
	r.Mul(r, hundred)
	r.Add(r, half)
	n := new(big.Int).Quo(r.Num(), r.Denom())

	digits := n.String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	return sign + digits[:len(digits)-2] + "." + digits[len(digits)-2:]
}
