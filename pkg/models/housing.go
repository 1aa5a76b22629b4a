package models

// HousingRecord is one row of the merged housing dataset: Zillow city-level
// values joined with HUD fair market rents and Census (NAR) county medians.
// Pointer fields are nullable; a source that failed to match leaves them nil.
type HousingRecord struct {
	ZipCode      int64    `json:"ZipCode"` // Zillow region id
	SizeRank     int64    `json:"SizeRank"`
	RegionName   string   `json:"RegionName"`
	State        string   `json:"State"`
	County       string   `json:"County"`
	City         string   `json:"City"`
	ZMediumRent  *float64 `json:"ZMediumRent"`
	ZMediumValue *float64 `json:"ZMediumValue"`
	NMediumValue *float64 `json:"NMediumValue"`
	EntityID     *string  `json:"entityid"` // HUD FIPS code
	IncomeLimits *float64 `json:"IncomeLimits"`
	Efficiency   *float64 `json:"Efficiency"`
	OneBedroom   *float64 `json:"OneBedroom"`
	TwoBedroom   *float64 `json:"TwoBedroom"`
	ThreeBedroom *float64 `json:"ThreeBedroom"`
	FourBedroom  *float64 `json:"FourBedroom"`
	ZillowRatio  *float64 `json:"ZillowRatio"`
	NARRatio     *float64 `json:"NARRatio"`
	ZHRatio      *float64 `json:"ZHRatio"`
	NHRatio      *float64 `json:"NHRatio"`
}

// DatasetColumn describes one column of the ingested dataset.
type DatasetColumn struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// DatasetSchema is the column layout plus row count of the dataset produced
// by the most recent successful pipeline run.
type DatasetSchema struct {
	Table     string          `json:"table"`
	Columns   []DatasetColumn `json:"columns"`
	TotalRows int             `json:"total_rows"`
}

// ColumnNames returns the schema's column names in order.
func (s *DatasetSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
