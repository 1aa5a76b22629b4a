package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"housing-data-go/pkg/fuzzy"
	"housing-data-go/pkg/models"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// DefaultHUDBaseURL is the public HUD USER API root.
const DefaultHUDBaseURL = "https://www.huduser.gov/hudapi/public"

// countyMatchFloor is the similarity below which a county name lookup is
// treated as no match rather than a guess.
const countyMatchFloor = 0.85

// HUDClient fetches FIPS codes, Fair Market Rents and income limits from the
// HUD USER API. Requests are rate limited and retried with backoff; county
// lookups are cached per (state, county).
type HUDClient struct {
	baseURL string
	apiKey  string
	year    string
	client  *http.Client
	logger  *zap.Logger

	workers     int
	minInterval time.Duration

	reqMu       sync.Mutex
	lastRequest time.Time

	cacheMu   sync.Mutex
	fipsCache map[string]string // "STATE/county" -> fips code ("" = known miss)
}

// HUDOptions configures a HUDClient.
type HUDOptions struct {
	BaseURL string
	APIKey  string
	Year    string
	Workers int
}

func NewHUDClient(opts HUDOptions, logger *zap.Logger) *HUDClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultHUDBaseURL
	}
	if opts.Year == "" {
		opts.Year = strconv.Itoa(time.Now().Year())
	}
	if opts.Workers < 1 {
		opts.Workers = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HUDClient{
		baseURL:     opts.BaseURL,
		apiKey:      opts.APIKey,
		year:        opts.Year,
		client:      &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		workers:     opts.Workers,
		minInterval: 100 * time.Millisecond,
		fipsCache:   make(map[string]string),
	}
}

// EnrichAll fills the HUD-sourced fields of every record using a worker
// pool. It returns the number of records that resolved to a FIPS area.
// Cancellation is checked between batches, so a stop request aborts the step
// without waiting for the full table.
func (c *HUDClient) EnrichAll(ctx context.Context, records []models.HousingRecord, st *State) (int, error) {
	pool, err := ants.NewPool(c.workers)
	if err != nil {
		return 0, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	batchSize := c.workers * 2
	matched := 0
	var matchedMu sync.Mutex

	for start := 0; start < len(records); start += batchSize {
		if ctx.Err() != nil {
			return matched, ctx.Err()
		}
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			i := i
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				if ctx.Err() != nil {
					return
				}
				if c.enrichRecord(ctx, &records[i]) {
					matchedMu.Lock()
					matched++
					matchedMu.Unlock()
				}
			}); err != nil {
				wg.Done()
				c.logger.Warn("failed to submit HUD task", zap.Error(err))
			}
		}
		wg.Wait()

		st.ReportRecords(end)
	}

	c.logger.Info("HUD enrichment finished",
		zap.Int("matched", matched),
		zap.Int("total", len(records)))
	return matched, nil
}

// enrichRecord resolves one record's FIPS area and fills its FMR and income
// limit fields. Returns true when a FIPS code was found.
func (c *HUDClient) enrichRecord(ctx context.Context, rec *models.HousingRecord) bool {
	fips, err := c.FIPSForCounty(ctx, rec.State, rec.County)
	if err != nil || fips == "" {
		return false
	}
	rec.EntityID = &fips

	if fmr, err := c.FairMarketRents(ctx, fips); err == nil && fmr != nil {
		rec.Efficiency = fmr.Efficiency
		rec.OneBedroom = fmr.OneBedroom
		rec.TwoBedroom = fmr.TwoBedroom
		rec.ThreeBedroom = fmr.ThreeBedroom
		rec.FourBedroom = fmr.FourBedroom
	}
	if il, err := c.IncomeLimit(ctx, fips); err == nil && il != nil {
		rec.IncomeLimits = il
	}
	return true
}

// FIPSForCounty resolves a (state, county) pair to a HUD FIPS code via the
// county list endpoint, exact match first, then fuzzy with a floor.
func (c *HUDClient) FIPSForCounty(ctx context.Context, state, county string) (string, error) {
	cacheKey := state + "/" + normalizeSpace(county)

	c.cacheMu.Lock()
	if fips, ok := c.fipsCache[cacheKey]; ok {
		c.cacheMu.Unlock()
		return fips, nil
	}
	c.cacheMu.Unlock()

	counties, err := c.listCounties(ctx, state)
	if err != nil {
		return "", err
	}

	target := normalizeSpace(county)
	fips := ""
	bestScore := 0.0
	for _, area := range counties {
		name := normalizeSpace(area.CountyName)
		if name == target {
			fips = area.FIPSCode
			break
		}
		if s := fuzzy.Score(name, target); s > bestScore && s >= countyMatchFloor {
			bestScore = s
			fips = area.FIPSCode
		}
	}

	c.cacheMu.Lock()
	c.fipsCache[cacheKey] = fips
	c.cacheMu.Unlock()
	return fips, nil
}

type hudCounty struct {
	CountyName string `json:"cntyname"`
	FIPSCode   string `json:"fips_code"`
}

func (c *HUDClient) listCounties(ctx context.Context, state string) ([]hudCounty, error) {
	url := fmt.Sprintf("%s/fmr/listCounties/%s?updated=%s", c.baseURL, state, c.year)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	// The endpoint returns either {"data": [...]} or a bare array.
	var wrapped struct {
		Data []hudCounty `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Data != nil {
		return wrapped.Data, nil
	}
	var bare []hudCounty
	if err := json.Unmarshal(body, &bare); err == nil {
		return bare, nil
	}
	return nil, newBadDataError("unrecognized county list payload")
}

// FMRData holds the Fair Market Rents for one FIPS area.
type FMRData struct {
	Efficiency   *float64
	OneBedroom   *float64
	TwoBedroom   *float64
	ThreeBedroom *float64
	FourBedroom  *float64
}

// FairMarketRents fetches the FMR basic data for an area. MSA-level figures
// are preferred when the area reports per-zip breakdowns.
func (c *HUDClient) FairMarketRents(ctx context.Context, entityID string) (*FMRData, error) {
	url := fmt.Sprintf("%s/fmr/data/%s?year=%s", c.baseURL, entityID, c.year)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			BasicData json.RawMessage `json:"basicdata"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newBadDataError("unrecognized FMR payload")
	}

	type basic struct {
		ZipCode      string          `json:"zip_code"`
		Efficiency   json.RawMessage `json:"Efficiency"`
		OneBedroom   json.RawMessage `json:"One-Bedroom"`
		TwoBedroom   json.RawMessage `json:"Two-Bedroom"`
		ThreeBedroom json.RawMessage `json:"Three-Bedroom"`
		FourBedroom  json.RawMessage `json:"Four-Bedroom"`
	}

	var b basic
	var list []basic
	if err := json.Unmarshal(payload.Data.BasicData, &list); err == nil && len(list) > 0 {
		b = list[0]
		for _, item := range list {
			if item.ZipCode == "MSA level" {
				b = item
				break
			}
		}
	} else if err := json.Unmarshal(payload.Data.BasicData, &b); err != nil {
		return nil, newBadDataError("unrecognized FMR basic data")
	}

	return &FMRData{
		Efficiency:   jsonNumber(b.Efficiency),
		OneBedroom:   jsonNumber(b.OneBedroom),
		TwoBedroom:   jsonNumber(b.TwoBedroom),
		ThreeBedroom: jsonNumber(b.ThreeBedroom),
		FourBedroom:  jsonNumber(b.FourBedroom),
	}, nil
}

// IncomeLimit fetches the very-low income limit (50% AMI, 4-person
// household) for an area.
func (c *HUDClient) IncomeLimit(ctx context.Context, entityID string) (*float64, error) {
	url := fmt.Sprintf("%s/il/data/%s?year=%s", c.baseURL, entityID, c.year)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data struct {
			VeryLow struct {
				IL50P4 json.RawMessage `json:"il50_p4"`
			} `json:"very_low"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newBadDataError("unrecognized income limits payload")
	}
	return jsonNumber(payload.Data.VeryLow.IL50P4), nil
}

// get performs a rate-limited GET with bearer auth and exponential backoff
// on 429 and transient server errors.
func (c *HUDClient) get(ctx context.Context, url string) ([]byte, error) {
	const maxRetries = 3

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.waitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if sleepCtx(ctx, backoff(attempt)) != nil {
				return nil, ctx.Err()
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				return nil, readErr
			}
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if sleepCtx(ctx, backoff(attempt)) != nil {
				return nil, ctx.Err()
			}
		default:
			return nil, &Error{Kind: ErrKindNetwork, Message: fmt.Sprintf("HUD request failed with status %d", resp.StatusCode)}
		}
	}
	return nil, newNetworkError("HUD request failed after retries", lastErr)
}

// waitTurn enforces the minimum interval between HUD requests.
func (c *HUDClient) waitTurn(ctx context.Context) error {
	c.reqMu.Lock()
	wait := c.minInterval - time.Since(c.lastRequest)
	if wait > 0 {
		c.lastRequest = time.Now().Add(wait)
	} else {
		c.lastRequest = time.Now()
	}
	c.reqMu.Unlock()

	if wait > 0 {
		return sleepCtx(ctx, wait)
	}
	return ctx.Err()
}

func backoff(attempt int) time.Duration {
	base := time.Duration(1<<attempt) * time.Second
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return base + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// normalizeSpace lowercases a name and collapses runs of whitespace so that
// "St.  Louis County" and "st. louis county" compare equal.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// jsonNumber parses a JSON value that HUD serves inconsistently as either a
// number or a numeric string.
func jsonNumber(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := strconv.ParseFloat(s, 64); err == nil {
			return &parsed
		}
	}
	return nil
}
