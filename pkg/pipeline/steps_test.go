package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"housing-data-go/pkg/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySaver struct {
	mu      sync.Mutex
	records []models.HousingRecord
	calls   int
}

func (m *memorySaver) ReplaceAll(_ context.Context, records []models.HousingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]models.HousingRecord(nil), records...)
	m.calls++
	return nil
}

// Runs the whole pipeline against fake Zillow, HUD and Census endpoints.
func TestPipelineEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/zhvi.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RegionID,SizeRank,RegionName,State,CountyName,2026-07-31\n" +
			"100,1,Houston,TX,Harris County,400000\n"))
	})
	mux.HandleFunc("/zori.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RegionID,2026-07-31\n100,2000\n"))
	})
	mux.HandleFunc("/fmr/listCounties/TX", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"cntyname": "Harris County", "fips_code": "4820199999"}]`))
	})
	mux.HandleFunc("/fmr/data/4820199999", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"basicdata": {"zip_code": "MSA level", "Efficiency": 1000, "One-Bedroom": 1100, "Two-Bedroom": 1300, "Three-Bedroom": 1700, "Four-Bedroom": 2100}}}`))
	})
	mux.HandleFunc("/il/data/4820199999", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"very_low": {"il50_p4": 48300}}}`))
	})
	mux.HandleFunc("/census", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[["B25077_001E","NAME","state","county"],["350000","Harris County, Texas","48","201"]]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	zillow := NewZillowClient(srv.URL+"/zhvi.csv", srv.URL+"/zori.csv", nil)
	hud := newTestHUDClient(srv.URL)
	census := NewCensusClient(srv.URL+"/census", nil)
	saver := &memorySaver{}
	logs := NewMemoryLogStore()

	o := New(BuildSteps(zillow, hud, census, saver, nil), logs, nil)
	require.NoError(t, o.Start(context.Background(), uuid.New()))
	job := waitTerminal(t, o)

	require.Equal(t, models.StatusCompleted, job.Status)
	assert.Equal(t, models.TotalPipelineSteps, job.CurrentStep)
	assert.Equal(t, 1, job.RecordsProcessed)

	assert.Equal(t, 1, saver.calls)
	require.Len(t, saver.records, 1)
	rec := saver.records[0]

	assert.Equal(t, int64(100), rec.ZipCode)
	assert.Equal(t, "Houston", rec.RegionName)
	require.NotNil(t, rec.EntityID)
	assert.Equal(t, "4820199999", *rec.EntityID)
	require.NotNil(t, rec.NMediumValue)
	assert.Equal(t, 350000.0, *rec.NMediumValue)
	require.NotNil(t, rec.IncomeLimits)
	assert.Equal(t, 48300.0, *rec.IncomeLimits)

	require.NotNil(t, rec.ZillowRatio)
	assert.InDelta(t, 2000.0/400000.0, *rec.ZillowRatio, 1e-9)
	require.NotNil(t, rec.NHRatio)
	assert.InDelta(t, 2100.0/350000.0, *rec.NHRatio, 1e-9)

	rows, total, err := logs.ListLogs(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Save Final Data", rows[0].StepName)
	assert.Equal(t, 1, rows[0].RecordsProcessed)
}
