package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"housing-data-go/pkg/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Default Zillow research extract URLs (city-level ZHVI and ZORI).
const (
	DefaultZHVIURL = "https://files.zillowstatic.com/research/public_csvs/zhvi/City_zhvi_uc_sfrcondo_tier_0.33_0.67_sm_sa_month.csv"
	DefaultZORIURL = "https://files.zillowstatic.com/research/public_csvs/zori/City_zori_uc_sfrcondomfr_sm_month.csv"
)

// Table is a parsed CSV extract. The Zillow files are wide: fixed identity
// columns followed by one column per month, the last of which is the most
// recent observation.
type Table struct {
	Headers []string
	Rows    [][]string
	index   map[string]int
}

// NewTable builds a Table and its header index.
func NewTable(headers []string, rows [][]string) *Table {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}
	return &Table{Headers: headers, Rows: rows, index: index}
}

// Col returns the index of a named column.
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// LastCol returns the index of the rightmost column (latest month).
func (t *Table) LastCol() int {
	return len(t.Headers) - 1
}

// ZillowClient downloads the ZHVI and ZORI research extracts.
type ZillowClient struct {
	zhviURL string
	zoriURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewZillowClient(zhviURL, zoriURL string, logger *zap.Logger) *ZillowClient {
	if zhviURL == "" {
		zhviURL = DefaultZHVIURL
	}
	if zoriURL == "" {
		zoriURL = DefaultZORIURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZillowClient{
		zhviURL: zhviURL,
		zoriURL: zoriURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger,
	}
}

// Download fetches both extracts concurrently.
func (c *ZillowClient) Download(ctx context.Context) (zhvi, zori *Table, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t, err := c.fetchCSV(gctx, c.zhviURL)
		if err != nil {
			return newNetworkError("ZHVI download failed", err)
		}
		c.logger.Info("ZHVI extract downloaded", zap.Int("rows", len(t.Rows)))
		zhvi = t
		return nil
	})
	g.Go(func() error {
		t, err := c.fetchCSV(gctx, c.zoriURL)
		if err != nil {
			return newNetworkError("ZORI download failed", err)
		}
		c.logger.Info("ZORI extract downloaded", zap.Int("rows", len(t.Rows)))
		zori = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return zhvi, zori, nil
}

func (c *ZillowClient) fetchCSV(ctx context.Context, url string) (*Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1 // month columns vary between refreshes

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("extract is empty")
	}
	return NewTable(records[0], records[1:]), nil
}

// MergeZillow inner-joins the two extracts on region id and produces the
// working records: identity columns from ZHVI, latest home value from ZHVI,
// latest rent from ZORI. Everything else starts unset and is filled by the
// later enrichment steps.
func MergeZillow(zhvi, zori *Table) ([]models.HousingRecord, error) {
	need := func(t *Table, label string, cols ...string) (map[string]int, error) {
		out := make(map[string]int, len(cols))
		for _, c := range cols {
			i, ok := t.Col(c)
			if !ok {
				return nil, newBadDataError(fmt.Sprintf("%s extract is missing column %q", label, c))
			}
			out[c] = i
		}
		return out, nil
	}

	hCols, err := need(zhvi, "ZHVI", "RegionID", "SizeRank", "RegionName", "State", "CountyName")
	if err != nil {
		return nil, err
	}
	rCols, err := need(zori, "ZORI", "RegionID")
	if err != nil {
		return nil, err
	}

	// Latest rent per region id.
	rentByRegion := make(map[string]*float64, len(zori.Rows))
	last := zori.LastCol()
	for _, row := range zori.Rows {
		if len(row) <= last {
			continue
		}
		rentByRegion[row[rCols["RegionID"]]] = parseFloat(row[last])
	}

	records := make([]models.HousingRecord, 0, len(zhvi.Rows))
	lastValue := zhvi.LastCol()
	for _, row := range zhvi.Rows {
		if len(row) <= lastValue {
			continue
		}
		regionID := row[hCols["RegionID"]]
		rent, ok := rentByRegion[regionID]
		if !ok {
			continue // inner join: only regions present in both extracts
		}

		id, err := strconv.ParseInt(regionID, 10, 64)
		if err != nil {
			continue
		}
		sizeRank, _ := strconv.ParseInt(row[hCols["SizeRank"]], 10, 64)

		name := row[hCols["RegionName"]]
		records = append(records, models.HousingRecord{
			ZipCode:      id,
			SizeRank:     sizeRank,
			RegionName:   name,
			State:        row[hCols["State"]],
			County:       row[hCols["CountyName"]],
			City:         name,
			ZMediumRent:  rent,
			ZMediumValue: parseFloat(row[lastValue]),
		})
	}

	if len(records) == 0 {
		return nil, newBadDataError("no regions present in both Zillow extracts")
	}
	return records, nil
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}
