// Package bcb provides a client for the Banco Central do Brasil SGS API
package bcb

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brstocks/mercado/internal/common"
	"github.com/brstocks/mercado/internal/interfaces"
)

const (
	DefaultBaseURL = "https://api.bcb.gov.br"
	DefaultTimeout = 15 * time.Second

	// SGS series 11 is the daily SELIC rate
	selicSeries = 11

	// B3 trading days per year, used to annualize the daily rate
	tradingDays = 252
)

// Client fetches rates from the SGS time-series API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *common.Logger
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

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new SGS client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger: common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type sgsObservation struct {
	Date  string `json:"data"`
	Value string `json:"valor"`
}

// AnnualizedRiskFree returns the latest daily SELIC rate compounded to
// an annual rate: (1 + daily)^252 - 1.
func (c *Client) AnnualizedRiskFree(ctx context.Context) (float64, error) {
	url := fmt.Sprintf("%s/dados/serie/bcdata.sgs.%d/dados/ultimos/1?formato=json", c.baseURL, selicSeries)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Int("series", selicSeries).Msg("SGS API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("SGS API error: status %d", resp.StatusCode)
	}

	var observations []sgsObservation
	if err := json.NewDecoder(resp.Body).Decode(&observations); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(observations) == 0 {
		return 0, fmt.Errorf("SGS series %d returned no observations", selicSeries)
	}

	// valor is a percentage per business day, e.g. "0.052531"
	dailyPct, err := strconv.ParseFloat(strings.TrimSpace(observations[0].Value), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse SELIC value %q: %w", observations[0].Value, err)
	}

	daily := dailyPct / 100
	annual := math.Pow(1+daily, tradingDays) - 1

	c.logger.Debug().Float64("daily_pct", dailyPct).Float64("annual", annual).Msg("SELIC annualized")

	return annual, nil
}

// Ensure Client implements MacroProvider
var _ interfaces.MacroProvider = (*Client)(nil)
