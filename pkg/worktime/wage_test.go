package worktime_test

import (
	"math"
	"testing"

	"github.com/mkapulica/Time-is-Money/pkg/worktime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWage_Valid(t *testing.T) {
	assert.True(t, worktime.Wage(15).Valid())
	assert.True(t, worktime.Wage(0.01).Valid())
	assert.False(t, worktime.Wage(0).Valid())
	assert.False(t, worktime.Wage(-3).Valid())
	assert.False(t, worktime.Wage(math.NaN()).Valid())
	assert.False(t, worktime.Wage(math.Inf(1)).Valid())
}

func TestToHours(t *testing.T) {
	assert.Equal(t, "1.80 h", worktime.ToHours(27, 15, "h"))
	assert.Equal(t, "2.00 h", worktime.ToHours(30, 15, ""))
	assert.Equal(t, "0.50 hrs", worktime.ToHours(5, 10, "hrs"))
	assert.Equal(t, "NaN h", worktime.ToHours(math.NaN(), 15, "h"))
	assert.Equal(t, "0.00 h", worktime.ToHours(0, 15, "h"))
}

func TestComputeWage(t *testing.T) {
	settings := &worktime.Settings{
		MonthlyIncome:  3000,
		WeeklyWorkdays: 5,
		DailyWorkHours: 8,
	}
	expectedHours := (365.25 / 12 / 7) * 5 * 8
	assert.InDelta(t, expectedHours, settings.MonthlyWorkHours(), 1e-9)

	wage, err := worktime.ComputeWage(settings)
	require.NoError(t, err)
	assert.InDelta(t, 3000/expectedHours, float64(wage), 1e-9)
}

func TestComputeWage_CommuteAndVacation(t *testing.T) {
	settings := &worktime.Settings{
		MonthlyIncome:       2500,
		WeeklyWorkdays:      5,
		DailyWorkHours:      8,
		DailyCommuteMinutes: 60,
		MonthlyCommuteCost:  100,
		VacationDays:        25,
	}
	hours := ((365.25 - 25) / 12 / 7) * 5 * 9
	wage, err := worktime.ComputeWage(settings)
	require.NoError(t, err)
	assert.InDelta(t, 2400/hours, float64(wage), 1e-9)
}

func TestComputeWage_Errors(t *testing.T) {
	_, err := worktime.ComputeWage(nil)
	assert.ErrorIs(t, err, worktime.ErrNoSettings)

	_, err = worktime.ComputeWage(&worktime.Settings{MonthlyIncome: 3000, DailyWorkHours: 8})
	assert.ErrorIs(t, err, worktime.ErrZeroWorkHours)

	_, err = worktime.ComputeWage(&worktime.Settings{
		MonthlyIncome:      100,
		MonthlyCommuteCost: 200,
		WeeklyWorkdays:     5,
		DailyWorkHours:     8,
	})
	assert.ErrorIs(t, err, worktime.ErrInvalidWage)
}
