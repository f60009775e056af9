// Package yahoo provides a client for the Yahoo Finance public JSON API
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/interfaces"
	"github.com/brstocks/mercado/internal/models"
)

const (
	DefaultBaseURL    = "https://query1.finance.yahoo.com"
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 5 // requests per second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 1 * time.Second

	providerName = "yahoo"
	userAgent    = "Mozilla/5.0 (compatible; mercado/1.0)"
)

// rawValue handles Yahoo's {"raw": 1.23, "fmt": "1.23"} number shape.
type rawValue struct {
	Raw float64 `json:"raw"`
}

func (v *rawValue) UnmarshalJSON(data []byte) error {
	type alias rawValue
	var a alias
	if err := json.Unmarshal(data, &a); err == nil {
		*v = rawValue(a)
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		v.Raw = num
		return nil
	}
	// empty object or string; treat as absent
	v.Raw = 0
	return nil
}

// NormalizeSymbol maps bare B3 tickers onto their Yahoo form. Tickers
// with no exchange suffix that end in a digit (PETR4, VALE3) gain the
// .SA suffix; anything already carrying a suffix is left alone.
// The mapping is idempotent.
func NormalizeSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.Contains(s, ".") {
		return s
	}
	if len(s) >= 4 && s[len(s)-1] >= '0' && s[len(s)-1] <= '9' {
		return s + ".SA"
	}
	return s
}

// Client implements the MarketDataProvider interface against Yahoo Finance
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the outbound request rate
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetry sets the retry budget and base delay
func WithRetry(maxRetries int, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// NewClient creates a new Yahoo Finance client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		logger:     common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// get performs a rate-limited GET with linear-backoff retries. Transient
// failures (network errors, 429, 5xx) are retried with delay growing as
// retryDelay * attempt; other HTTP errors are terminal.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		c.logger.Debug().Str("url", c.baseURL+path).Int("attempt", attempt).Msg("Yahoo API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			lastErr = c.handleResponse(resp, path, result)
			if lastErr == nil {
				return nil
			}
			if !isRetryable(lastErr) {
				return lastErr
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

func (c *Client) handleResponse(resp *http.Response, path string, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// httpError represents a non-200 upstream response
type httpError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("yahoo API error: status %d, endpoint %s", e.StatusCode, e.Endpoint)
}

// isRetryable reports whether a request failure is worth retrying.
// 429 and 5xx responses are transient; other HTTP errors are terminal.
// Network and decode errors retry.
func isRetryable(err error) bool {
	if he, ok := err.(*httpError); ok {
		return he.StatusCode == http.StatusTooManyRequests || he.StatusCode >= 500
	}
	return true
}

// GetQuote retrieves a normalized quote snapshot for a symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.StockData, error) {
	normalized := NormalizeSymbol(symbol)

	params := url.Values{}
	params.Set("symbols", normalized)

	var resp quoteResponse
	if err := c.get(ctx, "/v7/finance/quote", params, &resp); err != nil {
		return nil, models.NewProviderError(providerName, normalized, "quote request failed", err)
	}

	q := findQuote(resp.QuoteResponse.Result, normalized)
	if q == nil {
		return nil, models.NewProviderError(providerName, normalized, "no data returned for symbol", nil)
	}

	return &models.StockData{
		Symbol:        q.Symbol,
		Name:          firstNonEmpty(q.LongName, q.ShortName),
		Currency:      q.Currency,
		Exchange:      q.FullExchangeName,
		Price:         q.RegularMarketPrice,
		PreviousClose: q.RegularMarketPreviousClose,
		Change:        q.RegularMarketChange,
		ChangePct:     q.RegularMarketChangePercent,
		Open:          q.RegularMarketOpen,
		DayHigh:       q.RegularMarketDayHigh,
		DayLow:        q.RegularMarketDayLow,
		Volume:        q.RegularMarketVolume,
		MarketCap:     q.MarketCap,
		High52Week:    q.FiftyTwoWeekHigh,
		Low52Week:     q.FiftyTwoWeekLow,
		LastUpdated:   time.Now(),
	}, nil
}

// findQuote locates the result echoing the requested symbol. A response
// that does not echo the symbol is treated as invalid data.
func findQuote(results []quoteResult, symbol string) *quoteResult {
	for i := range results {
		if strings.EqualFold(results[i].Symbol, symbol) {
			return &results[i]
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                     string  `json:"symbol"`
	ShortName                  string  `json:"shortName"`
	LongName                   string  `json:"longName"`
	Currency                   string  `json:"currency"`
	FullExchangeName           string  `json:"fullExchangeName"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	RegularMarketChange        float64 `json:"regularMarketChange"`
	RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
	RegularMarketOpen          float64 `json:"regularMarketOpen"`
	RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	MarketCap                  float64 `json:"marketCap"`
	FiftyTwoWeekHigh           float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow            float64 `json:"fiftyTwoWeekLow"`
}

// GetHistory retrieves price bars for a symbol over a range
func (c *Client) GetHistory(ctx context.Context, symbol, period, interval string) ([]models.Bar, error) {
	normalized := NormalizeSymbol(symbol)

	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", interval)

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(normalized), params, &resp); err != nil {
		return nil, models.NewProviderError(providerName, normalized, "chart request failed", err)
	}

	if len(resp.Chart.Result) == 0 {
		return nil, models.NewProviderError(providerName, normalized, "no chart data returned", nil)
	}

	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, models.NewProviderError(providerName, normalized, "chart response missing quote series", nil)
	}

	q := r.Indicators.Quote[0]
	bars := make([]models.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		if i >= len(q.Close) || q.Close[i] == 0 {
			continue
		}
		bars = append(bars, models.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  q.Close[i],
			Volume: atInt(q.Volume, i),
		})
	}

	return bars, nil
}

func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func atInt(s []int64, i int) int64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// GetFundamentals retrieves the fundamental inputs for valuation models
func (c *Client) GetFundamentals(ctx context.Context, symbol string) (*models.Fundamentals, error) {
	normalized := NormalizeSymbol(symbol)

	params := url.Values{}
	params.Set("modules", "price,summaryDetail,defaultKeyStatistics,financialData,summaryProfile")

	var resp quoteSummaryResponse
	if err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(normalized), params, &resp); err != nil {
		return nil, models.NewProviderError(providerName, normalized, "quoteSummary request failed", err)
	}

	if len(resp.QuoteSummary.Result) == 0 {
		return nil, models.NewProviderError(providerName, normalized, "no fundamentals returned", nil)
	}

	r := resp.QuoteSummary.Result[0]
	if !strings.EqualFold(r.Price.Symbol, normalized) {
		return nil, models.NewProviderError(providerName, normalized, "response symbol mismatch", nil)
	}

	return &models.Fundamentals{
		Symbol:                  r.Price.Symbol,
		Name:                    firstNonEmpty(r.Price.LongName, r.Price.ShortName),
		Sector:                  r.SummaryProfile.Sector,
		Industry:                r.SummaryProfile.Industry,
		Price:                   r.Price.RegularMarketPrice.Raw,
		MarketCap:               r.Price.MarketCap.Raw,
		EnterpriseValue:         r.DefaultKeyStatistics.EnterpriseValue.Raw,
		SharesOutstanding:       r.DefaultKeyStatistics.SharesOutstanding.Raw,
		EPS:                     r.DefaultKeyStatistics.TrailingEPS.Raw,
		PE:                      r.SummaryDetail.TrailingPE.Raw,
		PB:                      r.DefaultKeyStatistics.PriceToBook.Raw,
		PEGRatio:                r.DefaultKeyStatistics.PEGRatio.Raw,
		BookValue:               r.DefaultKeyStatistics.BookValue.Raw,
		DividendRate:            r.SummaryDetail.DividendRate.Raw,
		DividendYield:           r.SummaryDetail.DividendYield.Raw,
		Beta:                    r.SummaryDetail.Beta.Raw,
		FreeCashflow:            r.FinancialData.FreeCashflow.Raw,
		OperatingCashflow:       r.FinancialData.OperatingCashflow.Raw,
		EBITDA:                  r.FinancialData.EBITDA.Raw,
		EBIT:                    r.FinancialData.EBITDA.Raw - r.DefaultKeyStatistics.DepreciationAmortization.Raw,
		TotalRevenue:            r.FinancialData.TotalRevenue.Raw,
		TotalDebt:               r.FinancialData.TotalDebt.Raw,
		TotalCash:               r.FinancialData.TotalCash.Raw,
		EarningsQuarterlyGrowth: r.DefaultKeyStatistics.EarningsQuarterlyGrowth.Raw,
		LastUpdated:             time.Now(),
	}, nil
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				Symbol             string   `json:"symbol"`
				ShortName          string   `json:"shortName"`
				LongName           string   `json:"longName"`
				RegularMarketPrice rawValue `json:"regularMarketPrice"`
				MarketCap          rawValue `json:"marketCap"`
			} `json:"price"`
			SummaryDetail struct {
				TrailingPE    rawValue `json:"trailingPE"`
				DividendRate  rawValue `json:"dividendRate"`
				DividendYield rawValue `json:"dividendYield"`
				Beta          rawValue `json:"beta"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				EnterpriseValue          rawValue `json:"enterpriseValue"`
				SharesOutstanding        rawValue `json:"sharesOutstanding"`
				TrailingEPS              rawValue `json:"trailingEps"`
				PriceToBook              rawValue `json:"priceToBook"`
				PEGRatio                 rawValue `json:"pegRatio"`
				BookValue                rawValue `json:"bookValue"`
				EarningsQuarterlyGrowth  rawValue `json:"earningsQuarterlyGrowth"`
				DepreciationAmortization rawValue `json:"depreciationAmortization"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				FreeCashflow      rawValue `json:"freeCashflow"`
				OperatingCashflow rawValue `json:"operatingCashflow"`
				EBITDA            rawValue `json:"ebitda"`
				TotalRevenue      rawValue `json:"totalRevenue"`
				TotalDebt         rawValue `json:"totalDebt"`
				TotalCash         rawValue `json:"totalCash"`
			} `json:"financialData"`
			SummaryProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"summaryProfile"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// Search finds symbols matching a free-text query
func (c *Client) Search(ctx context.Context, query string, limit int) ([]*models.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("quotesCount", strconv.Itoa(limit))
	params.Set("newsCount", "0")

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", params, &resp); err != nil {
		return nil, models.NewProviderError(providerName, "", "search request failed", err)
	}

	results := make([]*models.SearchResult, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		if q.Symbol == "" {
			continue
		}
		results = append(results, &models.SearchResult{
			Symbol:   q.Symbol,
			Name:     firstNonEmpty(q.LongName, q.ShortName),
			Exchange: q.Exchange,
			Type:     q.QuoteType,
		})
	}

	return results, nil
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		Exchange  string `json:"exchange"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
}

// Screen runs a predefined Yahoo screener category
func (c *Client) Screen(ctx context.Context, category string, limit int) ([]*models.ScreenResult, error) {
	if limit <= 0 {
		limit = 25
	}

	params := url.Values{}
	params.Set("scrIds", category)
	params.Set("count", strconv.Itoa(limit))

	var resp screenerResponse
	if err := c.get(ctx, "/v1/finance/screener/predefined/saved", params, &resp); err != nil {
		return nil, models.NewProviderError(providerName, "", "screener request failed", err)
	}

	if len(resp.Finance.Result) == 0 {
		return nil, models.NewProviderError(providerName, "", "screener returned no result set", nil)
	}

	rows := resp.Finance.Result[0].Quotes
	results := make([]*models.ScreenResult, 0, len(rows))
	for _, q := range rows {
		results = append(results, &models.ScreenResult{
			Symbol:    q.Symbol,
			Name:      firstNonEmpty(q.LongName, q.ShortName),
			Price:     q.RegularMarketPrice,
			ChangePct: q.RegularMarketChangePercent,
			Volume:    q.RegularMarketVolume,
			MarketCap: q.MarketCap,
			Sector:    q.Sector,
		})
	}

	return results, nil
}

type screenerResponse struct {
	Finance struct {
		Result []struct {
			Quotes []struct {
				Symbol                     string  `json:"symbol"`
				ShortName                  string  `json:"shortName"`
				LongName                   string  `json:"longName"`
				RegularMarketPrice         float64 `json:"regularMarketPrice"`
				RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
				RegularMarketVolume        int64   `json:"regularMarketVolume"`
				MarketCap                  float64 `json:"marketCap"`
				Sector                     string  `json:"sector"`
			} `json:"quotes"`
		} `json:"result"`
	} `json:"finance"`
}

// Ensure Client implements MarketDataProvider
var _ interfaces.MarketDataProvider = (*Client)(nil)
