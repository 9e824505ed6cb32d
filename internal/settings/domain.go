package settings

// OpeningBalances carries the balances brought forward into a fiscal
// year. Integer yen, zero when never set.
type OpeningBalances struct {
	Year        int   `json:"year"`
	Cash        int64 `json:"cash"`
	Deposits    int64 `json:"deposits"`
	Receivables int64 `json:"receivables"`
	Payables    int64 `json:"payables"`
	Borrowings  int64 `json:"borrowings"`
	Capital     int64 `json:"capital"`
}

// OpeningBalancesPatch merges into the stored record; nil fields keep
// their current value.
type OpeningBalancesPatch struct {
	Cash        *int64 `json:"cash"`
	Deposits    *int64 `json:"deposits"`
	Receivables *int64 `json:"receivables"`
	Payables    *int64 `json:"payables"`
	Borrowings  *int64 `json:"borrowings"`
	Capital     *int64 `json:"capital"`
}

func (p OpeningBalancesPatch) apply(b OpeningBalances) OpeningBalances {
	if p.Cash != nil {
		b.Cash = *p.Cash
	}
	if p.Deposits != nil {
		b.Deposits = *p.Deposits
	}
	if p.Receivables != nil {
		b.Receivables = *p.Receivables
	}
	if p.Payables != nil {
		b.Payables = *p.Payables
	}
	if p.Borrowings != nil {
		b.Borrowings = *p.Borrowings
	}
	if p.Capital != nil {
		b.Capital = *p.Capital
	}
	return b
}
