// Package valuation implements fair-price models over fundamental data.
// Every model fails soft: inputs that cannot support a model produce an
// unavailable Amount rather than an error, so one broken input never
// sinks a whole report.
package valuation

import (
	"math"

	"github.com/brstocks/mercado/internal/models"
)

const (
	// DefaultGrowth substitutes for a missing quarterly earnings growth
	DefaultGrowth = 0.05

	// MaxGrowth clamps quarterly growth before projecting it forward
	MaxGrowth = 0.25

	// DefaultDiscountRate is the required return used by DCF and Gordon
	DefaultDiscountRate = 0.10

	// FallbackRiskFree and FallbackEquityPremium feed CAPM when live
	// macro data is unavailable
	FallbackRiskFree      = 0.04
	FallbackEquityPremium = 0.06

	// dividendGrowthFactor derives sustainable dividend growth from
	// earnings growth
	dividendGrowthFactor = 0.6

	projectionYears = 5
)

// Calculator evaluates fair-price models with configured rates
type Calculator struct {
	discountRate float64
	fallbackRf   float64
	fallbackERP  float64
}

// Option configures the calculator
type Option func(*Calculator)

// WithDiscountRate overrides the required return
func WithDiscountRate(rate float64) Option {
	return func(c *Calculator) {
		if rate > 0 {
			c.discountRate = rate
		}
	}
}

// WithFallbackRates overrides the CAPM fallback inputs
func WithFallbackRates(riskFree, equityPremium float64) Option {
	return func(c *Calculator) {
		if riskFree > 0 {
			c.fallbackRf = riskFree
		}
		if equityPremium > 0 {
			c.fallbackERP = equityPremium
		}
	}
}

// NewCalculator creates a calculator with default rates
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		discountRate: DefaultDiscountRate,
		fallbackRf:   FallbackRiskFree,
		fallbackERP:  FallbackEquityPremium,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// growthRate returns the clamped earnings growth for projections
func growthRate(f *models.Fundamentals) float64 {
	g := f.EarningsQuarterlyGrowth
	if g == 0 {
		g = DefaultGrowth
	}
	if g < 0 {
		g = 0
	}
	if g > MaxGrowth {
		g = MaxGrowth
	}
	return g
}

// sharesOf returns the share count, treating missing counts as a single
// share so per-share math degrades to whole-firm value
func sharesOf(f *models.Fundamentals) float64 {
	if f.SharesOutstanding <= 0 {
		return 1
	}
	return f.SharesOutstanding
}

// DCF projects free cash flow over five years with a terminal
// perpetuity, discounted at the required return.
func (c *Calculator) DCF(f *models.Fundamentals) models.Amount {
	fcf := f.FreeCashflow
	if fcf <= 0 {
		return models.NA()
	}

	g := growthRate(f)
	dr := c.discountRate
	if dr <= g {
		return models.NA()
	}

	var pv float64
	projected := fcf
	for year := 1; year <= projectionYears; year++ {
		projected = fcf * math.Pow(1+g, float64(year))
		pv += projected / math.Pow(1+dr, float64(year))
	}

	terminal := projected * (1 + g) / (dr - g)
	pv += terminal / math.Pow(1+dr, projectionYears)

	return models.ValidAmount(pv / sharesOf(f))
}

// Gordon prices the stock as a growing dividend perpetuity. Dividend
// growth is assumed at 60% of earnings growth.
func (c *Calculator) Gordon(f *models.Fundamentals) models.Amount {
	div := f.DividendRate
	if div <= 0 {
		return models.NA()
	}

	gd := dividendGrowthFactor * growthRate(f)
	dr := c.discountRate
	if dr <= gd {
		return models.NA()
	}

	return models.ValidAmount(div * (1 + gd) / (dr - gd))
}

// EVEBITComparable prices the stock by applying the peer-average
// EV/EBIT multiple to its own EBIT, then bridging from enterprise to
// equity value.
func (c *Calculator) EVEBITComparable(f *models.Fundamentals, peers []*models.Fundamentals) models.Amount {
	if f.EBIT <= 0 {
		return models.NA()
	}

	var sum float64
	var n int
	for _, p := range peers {
		if p == nil || p.EBIT <= 0 || p.EnterpriseValue <= 0 {
			continue
		}
		sum += p.EnterpriseValue / p.EBIT
		n++
	}
	if n == 0 {
		return models.NA()
	}

	avgMultiple := sum / float64(n)
	equity := avgMultiple*f.EBIT - f.TotalDebt + f.TotalCash
	if equity <= 0 {
		return models.NA()
	}

	return models.ValidAmount(equity / sharesOf(f))
}

// PEComparable prices the stock at the peer-average P/E times its EPS.
func (c *Calculator) PEComparable(f *models.Fundamentals, peers []*models.Fundamentals) models.Amount {
	if f.EPS <= 0 {
		return models.NA()
	}

	var sum float64
	var n int
	for _, p := range peers {
		if p == nil || p.PE <= 0 {
			continue
		}
		sum += p.PE
		n++
	}
	if n == 0 {
		return models.NA()
	}

	return models.ValidAmount(sum / float64(n) * f.EPS)
}

// PEG prices the stock from its PEG ratio and EPS.
func (c *Calculator) PEG(f *models.Fundamentals) models.Amount {
	if f.PEGRatio <= 0 || f.EPS <= 0 {
		return models.NA()
	}
	return models.ValidAmount(f.PEGRatio * f.EPS)
}

// CAPMDividend discounts the dividend perpetuity at a CAPM cost of
// equity. With live macro data, ke = rf + beta*(rm - rf); otherwise the
// fallback risk-free rate and equity premium apply.
func (c *Calculator) CAPMDividend(f *models.Fundamentals, macro models.MacroContext) models.Amount {
	div := f.DividendRate
	if div <= 0 {
		return models.NA()
	}

	beta := f.Beta
	if beta <= 0 {
		beta = 1.0
	}

	var ke float64
	if macro.UsedFallback || !macro.MarketReturn.Valid {
		ke = c.fallbackRf + beta*c.fallbackERP
	} else {
		ke = macro.RiskFree + beta*(macro.MarketReturn.Value-macro.RiskFree)
	}

	gd := dividendGrowthFactor * growthRate(f)
	if ke <= gd {
		return models.NA()
	}

	return models.ValidAmount(div * (1 + gd) / (ke - gd))
}

// CostOfEquity exposes the CAPM rate for a given beta, using the
// fallback inputs when live macro data is missing.
func (c *Calculator) CostOfEquity(beta float64, macro models.MacroContext) float64 {
	if beta <= 0 {
		beta = 1.0
	}
	if macro.UsedFallback || !macro.MarketReturn.Valid {
		return c.fallbackRf + beta*c.fallbackERP
	}
	return macro.RiskFree + beta*(macro.MarketReturn.Value-macro.RiskFree)
}

// Mean returns the arithmetic mean of the valid estimates, or N/A when
// none are valid.
func Mean(estimates ...models.Amount) models.Amount {
	var sum float64
	var n int
	for _, e := range estimates {
		if e.Valid {
			sum += e.Value
			n++
		}
	}
	if n == 0 {
		return models.NA()
	}
	return models.ValidAmount(sum / float64(n))
}

// MultiplesFor reports the observed valuation ratios for a symbol.
// Ratios with a non-positive denominator are unavailable.
func MultiplesFor(f *models.Fundamentals) models.Multiples {
	m := models.Multiples{}

	if f.PE > 0 {
		m.PE = models.ValidAmount(f.PE)
	} else if f.EPS > 0 && f.Price > 0 {
		m.PE = models.ValidAmount(f.Price / f.EPS)
	}

	if f.PB > 0 {
		m.PB = models.ValidAmount(f.PB)
	} else if f.BookValue > 0 && f.Price > 0 {
		m.PB = models.ValidAmount(f.Price / f.BookValue)
	}

	if f.EnterpriseValue > 0 && f.EBITDA > 0 {
		m.EVEBITDA = models.ValidAmount(f.EnterpriseValue / f.EBITDA)
	}

	if f.EnterpriseValue > 0 && f.TotalRevenue > 0 {
		m.EVRevenue = models.ValidAmount(f.EnterpriseValue / f.TotalRevenue)
	}

	return m
}
