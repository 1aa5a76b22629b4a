package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"housing-data-go/pkg/fuzzy"
	"housing-data-go/pkg/models"

	"go.uber.org/zap"
)

// DefaultCensusURL is the ACS 5-year median home value query for every
// county in the country (table B25077).
const DefaultCensusURL = "https://api.census.gov/data/2023/acs/acs5?get=B25077_001E,NAME&for=county:*"

// censusMatchFloor is the similarity floor for fuzzy county matching when no
// exact normalized match exists.
const censusMatchFloor = 0.80

// CensusClient fetches county-level median home values from the Census ACS
// API and attaches them to housing records by (county, state) match.
type CensusClient struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewCensusClient(url string, logger *zap.Logger) *CensusClient {
	if url == "" {
		url = DefaultCensusURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CensusClient{
		url:    url,
		client: &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// Fetch downloads the county median values keyed by "county|state" with
// normalized names.
func (c *CensusClient) Fetch(ctx context.Context) (map[string]float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, newNetworkError("failed to fetch census data", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: ErrKindNetwork, Message: fmt.Sprintf("census request failed with status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// The ACS API returns an array of arrays, first row is the header.
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, newBadDataError("unrecognized census payload")
	}
	if len(rows) < 2 {
		return nil, newBadDataError("census payload contains no rows")
	}

	values := make(map[string]float64, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 2 {
			continue
		}
		value, err := strconv.ParseFloat(row[0], 64)
		if err != nil || value <= 0 {
			continue
		}
		county, state, ok := splitCensusName(row[1])
		if !ok {
			continue
		}
		values[county+"|"+state] = value
	}

	c.logger.Info("census data fetched", zap.Int("counties", len(values)))
	return values, nil
}

// Enrich sets NMediumValue on each record from the census county map, exact
// normalized match first, then fuzzy within the same state.
func (c *CensusClient) Enrich(records []models.HousingRecord, values map[string]float64) int {
	// Group candidate county names per state for the fuzzy pass.
	byState := make(map[string][]string)
	for key := range values {
		county, state, _ := strings.Cut(key, "|")
		byState[state] = append(byState[state], county)
	}

	matched := 0
	for i := range records {
		state := normalizeSpace(stateFullName(records[i].State))
		county := normalizeCountyName(records[i].County)
		if county == "" || state == "" {
			continue
		}

		if v, ok := values[county+"|"+state]; ok {
			records[i].NMediumValue = &v
			matched++
			continue
		}
		if best, score, ok := fuzzy.BestMatch(county, byState[state], censusMatchFloor); ok && score >= censusMatchFloor {
			v := values[best+"|"+state]
			records[i].NMediumValue = &v
			matched++
		}
	}

	c.logger.Info("census enrichment finished",
		zap.Int("matched", matched),
		zap.Int("total", len(records)))
	return matched
}

// splitCensusName parses an ACS NAME like "St. Louis County, Missouri" into
// normalized county and state parts.
func splitCensusName(name string) (county, state string, ok bool) {
	countyPart, statePart, found := strings.Cut(name, ",")
	if !found {
		return "", "", false
	}
	return normalizeCountyName(countyPart), normalizeSpace(statePart), true
}

// countySuffixes are the area-type suffixes ACS appends to county names.
var countySuffixes = []string{
	" county", " parish", " borough", " census area", " municipality",
	" city and borough", " municipio", " city",
}

// normalizeCountyName lowercases, strips the area-type suffix and expands
// "st." to "saint" so Zillow and ACS spellings line up.
func normalizeCountyName(name string) string {
	n := normalizeSpace(name)
	for _, suffix := range countySuffixes {
		n = strings.TrimSuffix(n, suffix)
	}
	if strings.HasPrefix(n, "st. ") {
		n = "saint " + strings.TrimPrefix(n, "st. ")
	} else if strings.HasPrefix(n, "st ") {
		n = "saint " + strings.TrimPrefix(n, "st ")
	}
	return strings.TrimSpace(n)
}

// stateNames maps USPS abbreviations to the full names ACS uses.
var stateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia",
	"HI": "Hawaii", "ID": "Idaho", "IL": "Illinois", "IN": "Indiana",
	"IA": "Iowa", "KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana",
	"ME": "Maine", "MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan",
	"MN": "Minnesota", "MS": "Mississippi", "MO": "Missouri", "MT": "Montana",
	"NE": "Nebraska", "NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey",
	"NM": "New Mexico", "NY": "New York", "NC": "North Carolina",
	"ND": "North Dakota", "OH": "Ohio", "OK": "Oklahoma", "OR": "Oregon",
	"PA": "Pennsylvania", "PR": "Puerto Rico", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee",
	"TX": "Texas", "UT": "Utah", "VT": "Vermont", "VA": "Virginia",
	"WA": "Washington", "WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

// stateFullName expands a USPS abbreviation; already-full names pass through.
func stateFullName(s string) string {
	if full, ok := stateNames[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return full
	}
	return s
}
