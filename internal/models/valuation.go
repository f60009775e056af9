package models

import (
	"strconv"
	"time"
)

// Amount is a price estimate that may be unavailable. Invalid amounts
// serialize as the string "N/A" so downstream consumers can distinguish
// a model that could not run from a model that produced zero.
type Amount struct {
	Value float64
	Valid bool
}

// ValidAmount returns a valid Amount
func ValidAmount(v float64) Amount {
	return Amount{Value: v, Valid: true}
}

// NA returns an unavailable Amount
func NA() Amount {
	return Amount{}
}

// MarshalJSON emits the value as a number, or "N/A" when unavailable
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.FormatFloat(a.Value, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts a number or the string "N/A"
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == `"N/A"` || s == "null" {
		*a = Amount{}
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*a = Amount{Value: v, Valid: true}
	return nil
}

// ValuationReport holds the per-model fair price estimates for a symbol
type ValuationReport struct {
	Symbol       string       `json:"symbol"`
	CurrentPrice float64      `json:"current_price"`
	DCF          Amount       `json:"dcf"`
	Gordon       Amount       `json:"gordon"`
	EVEBITPeers  Amount       `json:"ev_ebit_comparable"`
	PEPeers      Amount       `json:"pe_comparable"`
	PEG          Amount       `json:"peg"`
	CAPMDividend Amount       `json:"capm_dividend"`
	Mean         Amount       `json:"mean"`
	Multiples    Multiples    `json:"multiples"`
	Macro        MacroContext `json:"macro"`
	Commentary   string       `json:"commentary,omitempty"`
	GeneratedAt  time.Time    `json:"generated_at"`
}

// Multiples holds observed valuation ratios for a symbol
type Multiples struct {
	PE        Amount `json:"pe"`
	PB        Amount `json:"pb"`
	EVEBITDA  Amount `json:"ev_ebitda"`
	EVRevenue Amount `json:"ev_revenue"`
}

// MacroContext holds the macro inputs that fed the CAPM model
type MacroContext struct {
	RiskFree     float64 `json:"risk_free"`
	MarketReturn Amount  `json:"market_return"`
	UsedFallback bool    `json:"used_fallback"`
}
