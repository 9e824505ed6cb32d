package assets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func asset(price int64, lifespan int, service time.Time, ratio int) FixedAsset {
	return FixedAsset{
		Name:          "incubator",
		PurchaseDate:  service,
		PurchasePrice: price,
		LifespanYears: lifespan,
		Method:        MethodStraightLine,
		BusinessRatio: ratio,
		Status:        StatusActive,
	}
}

func day(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestDepreciateFirstYearProration(t *testing.T) {
	// 480,000 over 4 years, in service July 2024: 6 months of the
	// 120,000 annual base in the first year.
	a := asset(480_000, 4, day(2024, 7, 1), 100)

	comp := Depreciate(a, 2024)
	require.Equal(t, 6, comp.MonthsUsed)
	require.Equal(t, int64(60_000), comp.GrossExpense)
	require.Equal(t, int64(60_000), comp.AllowableExpense)
	require.Equal(t, int64(0), comp.Accumulated)
	require.Equal(t, int64(420_000), comp.BookValue)
}

func TestDepreciateSecondYearFullTerm(t *testing.T) {
	a := asset(480_000, 4, day(2024, 7, 1), 100)

	comp := Depreciate(a, 2025)
	require.Equal(t, 12, comp.MonthsUsed)
	require.Equal(t, int64(120_000), comp.GrossExpense)
	require.Equal(t, int64(60_000), comp.Accumulated)
	require.Equal(t, int64(300_000), comp.BookValue)
}

func TestDepreciateFinalYearCapsAtMemoResidual(t *testing.T) {
	a := asset(480_000, 4, day(2024, 7, 1), 100)

	// 2028 holds whatever remains above the 1-yen residual.
	comp := Depreciate(a, 2028)
	require.Equal(t, int64(59_999), comp.GrossExpense)
	require.Equal(t, int64(420_000), comp.Accumulated)
	require.Equal(t, int64(1), comp.BookValue)

	after := Depreciate(a, 2030)
	require.Equal(t, int64(0), after.GrossExpense)
	require.Equal(t, int64(1), after.BookValue)
}

func TestDepreciateBusinessRatioScalesExpenseOnly(t *testing.T) {
	a := asset(480_000, 4, day(2024, 7, 1), 80)

	comp := Depreciate(a, 2025)
	require.Equal(t, int64(120_000), comp.GrossExpense)
	require.Equal(t, int64(96_000), comp.AllowableExpense)
	// Book value tracks the gross schedule, not the allowable share.
	require.Equal(t, int64(300_000), comp.BookValue)
}

func TestDepreciateBeforeService(t *testing.T) {
	a := asset(480_000, 4, day(2024, 7, 1), 100)

	comp := Depreciate(a, 2023)
	require.Equal(t, int64(0), comp.GrossExpense)
	require.Equal(t, int64(480_000), comp.BookValue)
}

func TestDepreciateUsesServiceDateOverPurchase(t *testing.T) {
	a := asset(120_000, 5, day(2024, 2, 1), 100)
	service := day(2024, 10, 1)
	a.ServiceDate = &service

	comp := Depreciate(a, 2024)
	require.Equal(t, 3, comp.MonthsUsed)
	require.Equal(t, int64(6_000), comp.GrossExpense)
}

func TestDepreciateOneTime(t *testing.T) {
	a := asset(98_000, 0, day(2024, 5, 1), 100)
	a.Method = MethodOneTime

	first := Depreciate(a, 2024)
	require.Equal(t, int64(98_000), first.GrossExpense)
	require.Equal(t, int64(1), first.BookValue)

	later := Depreciate(a, 2025)
	require.Equal(t, int64(0), later.GrossExpense)
	require.Equal(t, int64(1), later.BookValue)
}

func TestOpeningBookValue(t *testing.T) {
	a := asset(480_000, 4, day(2024, 7, 1), 100)

	require.Equal(t, int64(480_000), OpeningBookValue(a, 2024))
	require.Equal(t, int64(420_000), OpeningBookValue(a, 2025))
	require.Equal(t, int64(300_000), OpeningBookValue(a, 2026))
}

func TestComputeDisposalMidYear(t *testing.T) {
	a := asset(480_000, 4, day(2024, 7, 1), 100)

	// Disposed June 2026: opening book 300,000, six months of the
	// 120,000 base, remainder written off.
	d := ComputeDisposal(a, day(2026, 6, 15))
	require.Equal(t, 6, d.MonthsUsed)
	require.Equal(t, int64(60_000), d.TermGross)
	require.Equal(t, int64(240_000), d.LossGross)
	require.Equal(t, int64(60_000), d.TermAllowable)
	require.Equal(t, int64(240_000), d.LossAllowable)
}

func TestComputeDisposalInServiceYear(t *testing.T) {
	a := asset(480_000, 4, day(2024, 7, 1), 100)

	// Disposed September of the service year: July–September.
	d := ComputeDisposal(a, day(2024, 9, 30))
	require.Equal(t, 3, d.MonthsUsed)
	require.Equal(t, int64(30_000), d.TermGross)
	require.Equal(t, int64(450_000), d.LossGross)
}

func TestComputeDisposalBusinessRatio(t *testing.T) {
	a := asset(480_000, 4, day(2024, 7, 1), 50)

	d := ComputeDisposal(a, day(2026, 6, 15))
	require.Equal(t, int64(60_000), d.TermGross)
	require.Equal(t, int64(30_000), d.TermAllowable)
	require.Equal(t, int64(120_000), d.LossAllowable)
}

func TestComputeDisposalFullyDepreciated(t *testing.T) {
	a := asset(480_000, 4, day(2018, 1, 1), 100)

	d := ComputeDisposal(a, day(2026, 3, 1))
	require.Equal(t, int64(0), d.TermGross)
	require.Equal(t, int64(1), d.LossGross)
}
