package assets

import "time"

// Computation is the depreciation outcome for one asset and one year,
// rebuilt from the asset master alone.
type Computation struct {
	Year             int   `json:"year"`
	MonthsUsed       int   `json:"months_used"`
	GrossExpense     int64 `json:"gross_expense"`
	AllowableExpense int64 `json:"allowable_expense"`
	Accumulated      int64 `json:"accumulated"`
	BookValue        int64 `json:"book_value"`
}

// Disposal is the mid-year write-off computation: the final prorated
// depreciation term plus the remaining book value taken as a loss.
type Disposal struct {
	Year          int   `json:"year"`
	MonthsUsed    int   `json:"months_used"`
	TermGross     int64 `json:"term_gross"`
	TermAllowable int64 `json:"term_allowable"`
	LossGross     int64 `json:"loss_gross"`
	LossAllowable int64 `json:"loss_allowable"`
}

func businessShare(amount int64, ratio int) int64 {
	return amount * int64(ratio) / 100
}

// annualBase is the level straight-line amount before proration.
func annualBase(price int64, lifespan int) int64 {
	return price / int64(lifespan)
}

// monthsInService returns how many months of the given calendar year
// the asset was depreciating, counting the service month itself.
func monthsInService(start time.Time, year int) int {
	switch {
	case year < start.Year():
		return 0
	case year == start.Year():
		return 13 - int(start.Month())
	default:
		return 12
	}
}

// Depreciate reconstructs the straight-line (or one-time) schedule from
// the service start through the requested year. The cumulative expense
// is capped so the book value never drops below the 1-yen memo residual.
func Depreciate(a FixedAsset, year int) Computation {
	start := a.ServiceStart()
	comp := Computation{Year: year, BookValue: a.PurchasePrice}
	if year < start.Year() || a.PurchasePrice <= 0 {
		return comp
	}

	if a.Method == MethodOneTime {
		comp.BookValue = 1
		if year == start.Year() {
			comp.MonthsUsed = monthsInService(start, year)
			comp.GrossExpense = a.PurchasePrice
			comp.AllowableExpense = businessShare(comp.GrossExpense, a.BusinessRatio)
		} else {
			comp.Accumulated = a.PurchasePrice
		}
		return comp
	}

	if a.LifespanYears <= 0 {
		return comp
	}

	base := annualBase(a.PurchasePrice, a.LifespanYears)
	limit := a.PurchasePrice - 1
	var accumulated int64
	for y := start.Year(); y <= year; y++ {
		months := monthsInService(start, y)
		dep := base * int64(months) / 12
		if accumulated+dep > limit {
			dep = limit - accumulated
		}
		if dep < 0 {
			dep = 0
		}
		if y == year {
			comp.MonthsUsed = months
			comp.GrossExpense = dep
		}
		accumulated += dep
	}

	comp.Accumulated = accumulated - comp.GrossExpense
	comp.AllowableExpense = businessShare(comp.GrossExpense, a.BusinessRatio)
	comp.BookValue = a.PurchasePrice - accumulated
	if comp.BookValue < 1 {
		comp.BookValue = 1
	}
	return comp
}

// OpeningBookValue is the book value at January 1 of the given year,
// i.e. before any depreciation of that year is applied.
func OpeningBookValue(a FixedAsset, year int) int64 {
	prev := Depreciate(a, year-1)
	return prev.BookValue
}

// ComputeDisposal prorates the disposal year's depreciation up to and
// including the disposal month, caps it at the opening book value minus
// the memo residual, and books whatever remains as a removal loss.
func ComputeDisposal(a FixedAsset, date time.Time) Disposal {
	year := date.Year()
	d := Disposal{Year: year}

	start := a.ServiceStart()
	firstMonth := 1
	if start.Year() == year {
		firstMonth = int(start.Month())
	}
	months := int(date.Month()) - firstMonth + 1
	if months < 0 {
		months = 0
	}
	if months > 12 {
		months = 12
	}
	d.MonthsUsed = months

	opening := OpeningBookValue(a, year)
	if a.Method == MethodStraightLine && a.LifespanYears > 0 && opening > 1 {
		dep := annualBase(a.PurchasePrice, a.LifespanYears) * int64(months) / 12
		if dep > opening-1 {
			dep = opening - 1
		}
		d.TermGross = dep
	}
	d.LossGross = opening - d.TermGross
	if d.LossGross < 0 {
		d.LossGross = 0
	}
	d.TermAllowable = businessShare(d.TermGross, a.BusinessRatio)
	d.LossAllowable = businessShare(d.LossGross, a.BusinessRatio)
	return d
}
