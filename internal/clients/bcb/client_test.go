package bcb

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnualizedRiskFree(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dados/serie/bcdata.sgs.11/dados/ultimos/1", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("formato"))
		fmt.Fprint(w, `[{"data":"27/08/2026","valor":"0.052531"}]`)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	annual, err := c.AnnualizedRiskFree(context.Background())
	require.NoError(t, err)

	want := math.Pow(1+0.052531/100, 252) - 1
	assert.InDelta(t, want, annual, 1e-9)
	// a ~0.0525% daily rate compounds to roughly 14% a year
	assert.InDelta(t, 0.1415, annual, 0.005)
}

func TestAnnualizedRiskFree_EmptySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	_, err := c.AnnualizedRiskFree(context.Background())
	assert.Error(t, err)
}

func TestAnnualizedRiskFree_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	_, err := c.AnnualizedRiskFree(context.Background())
	assert.Error(t, err)
}

func TestAnnualizedRiskFree_BadValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"data":"27/08/2026","valor":"not-a-number"}]`)
	}))
	defer server.Close()

	c := NewClient(WithBaseURL(server.URL))
	_, err := c.AnnualizedRiskFree(context.Background())
	assert.Error(t, err)
}
