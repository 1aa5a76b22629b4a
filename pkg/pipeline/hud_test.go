package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"housing-data-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hudTestServer(t *testing.T, countyCalls *int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/fmr/listCounties/TX", func(w http.ResponseWriter, r *http.Request) {
		if countyCalls != nil {
			atomic.AddInt64(countyCalls, 1)
		}
		fmt.Fprint(w, `[
			{"cntyname": "Harris County", "fips_code": "4820199999"},
			{"cntyname": "Travis County", "fips_code": "4845399999"}
		]`)
	})
	mux.HandleFunc("/fmr/data/4820199999", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"basicdata": [
			{"zip_code": "77001", "Efficiency": 1000, "One-Bedroom": 1100, "Two-Bedroom": 1300, "Three-Bedroom": 1700, "Four-Bedroom": 2100},
			{"zip_code": "MSA level", "Efficiency": "1050", "One-Bedroom": "1150", "Two-Bedroom": "1350", "Three-Bedroom": "1750", "Four-Bedroom": "2150"}
		]}}`)
	})
	mux.HandleFunc("/il/data/4820199999", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"very_low": {"il50_p4": 48300}}}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestHUDClient(baseURL string) *HUDClient {
	c := NewHUDClient(HUDOptions{BaseURL: baseURL, APIKey: "test-key", Year: "2025", Workers: 2}, nil)
	c.minInterval = 0
	return c
}

func TestFIPSForCounty(t *testing.T) {
	var calls int64
	srv := hudTestServer(t, &calls)
	client := newTestHUDClient(srv.URL)
	ctx := context.Background()

	t.Run("exact match", func(t *testing.T) {
		fips, err := client.FIPSForCounty(ctx, "TX", "Harris County")
		require.NoError(t, err)
		assert.Equal(t, "4820199999", fips)
	})

	t.Run("fuzzy match above the floor", func(t *testing.T) {
		fips, err := client.FIPSForCounty(ctx, "TX", "Traviss County")
		require.NoError(t, err)
		assert.Equal(t, "4845399999", fips)
	})

	t.Run("no confident match", func(t *testing.T) {
		fips, err := client.FIPSForCounty(ctx, "TX", "Nowhere County")
		require.NoError(t, err)
		assert.Empty(t, fips)
	})

	t.Run("lookups are cached per state and county", func(t *testing.T) {
		before := atomic.LoadInt64(&calls)
		_, err := client.FIPSForCounty(ctx, "TX", "Harris County")
		require.NoError(t, err)
		_, err = client.FIPSForCounty(ctx, "TX", "harris  county")
		require.NoError(t, err)
		assert.Equal(t, before, atomic.LoadInt64(&calls))
	})
}

func TestFairMarketRents(t *testing.T) {
	srv := hudTestServer(t, nil)
	client := newTestHUDClient(srv.URL)

	fmr, err := client.FairMarketRents(context.Background(), "4820199999")
	require.NoError(t, err)

	// The MSA-level row wins over the per-zip rows, and string-typed numbers
	// parse the same as plain numbers.
	require.NotNil(t, fmr.Efficiency)
	assert.Equal(t, 1050.0, *fmr.Efficiency)
	require.NotNil(t, fmr.FourBedroom)
	assert.Equal(t, 2150.0, *fmr.FourBedroom)
}

func TestIncomeLimit(t *testing.T) {
	srv := hudTestServer(t, nil)
	client := newTestHUDClient(srv.URL)

	il, err := client.IncomeLimit(context.Background(), "4820199999")
	require.NoError(t, err)
	require.NotNil(t, il)
	assert.Equal(t, 48300.0, *il)
}

func TestEnrichAll(t *testing.T) {
	srv := hudTestServer(t, nil)
	client := newTestHUDClient(srv.URL)

	records := []models.HousingRecord{
		{RegionName: "Houston", State: "TX", County: "Harris County"},
		{RegionName: "Nowhere", State: "TX", County: "Nowhere County"},
	}

	var reported []int
	st := &State{report: func(n int) { reported = append(reported, n) }}

	matched, err := client.EnrichAll(context.Background(), records, st)
	require.NoError(t, err)
	assert.Equal(t, 1, matched)
	assert.Equal(t, []int{2}, reported)

	houston := records[0]
	require.NotNil(t, houston.EntityID)
	assert.Equal(t, "4820199999", *houston.EntityID)
	require.NotNil(t, houston.TwoBedroom)
	assert.Equal(t, 1350.0, *houston.TwoBedroom)
	require.NotNil(t, houston.IncomeLimits)
	assert.Equal(t, 48300.0, *houston.IncomeLimits)

	nowhere := records[1]
	assert.Nil(t, nowhere.EntityID)
	assert.Nil(t, nowhere.IncomeLimits)
}

func TestEnrichAllHonorsCancellation(t *testing.T) {
	srv := hudTestServer(t, nil)
	client := newTestHUDClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	records := make([]models.HousingRecord, 50)
	_, err := client.EnrichAll(ctx, records, &State{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJSONNumber(t *testing.T) {
	cases := []struct {
		raw  string
		want *float64
	}{
		{`1234`, fptr(1234)},
		{`1234.5`, fptr(1234.5)},
		{`"987"`, fptr(987)},
		{`"n/a"`, nil},
		{`null`, nil},
		{``, nil},
	}
	for _, tc := range cases {
		got := jsonNumber(json.RawMessage(tc.raw))
		if tc.want == nil {
			assert.Nil(t, got, "input %q", tc.raw)
		} else {
			require.NotNil(t, got, "input %q", tc.raw)
			assert.Equal(t, *tc.want, *got, "input %q", tc.raw)
		}
	}
}
