package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zhviCSV = `RegionID,SizeRank,RegionName,RegionType,StateName,State,Metro,CountyName,2026-06-30,2026-07-31
102001,1,New York,city,NY,NY,New York-Newark,Queens County,680000,685000
394913,2,Los Angeles,city,CA,CA,Los Angeles,Los Angeles County,910000,915000
753899,3,Houston,city,TX,TX,Houston,Harris County,,
`

const zoriCSV = `RegionID,SizeRank,RegionName,RegionType,StateName,State,Metro,CountyName,2026-06-30,2026-07-31
102001,1,New York,city,NY,NY,New York-Newark,Queens County,3400,3450
753899,3,Houston,city,TX,TX,Houston,Harris County,1800,1820
999999,9,Nowhere,city,ZZ,ZZ,,Nowhere County,100,100
`

func zillowTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/zhvi.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(zhviCSV))
	})
	mux.HandleFunc("/zori.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(zoriCSV))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestZillowDownload(t *testing.T) {
	srv := zillowTestServer(t)
	client := NewZillowClient(srv.URL+"/zhvi.csv", srv.URL+"/zori.csv", nil)

	zhvi, zori, err := client.Download(context.Background())
	require.NoError(t, err)
	assert.Len(t, zhvi.Rows, 3)
	assert.Len(t, zori.Rows, 3)

	col, ok := zhvi.Col("CountyName")
	require.True(t, ok)
	assert.Equal(t, "Queens County", zhvi.Rows[0][col])
	assert.Equal(t, len(zhvi.Headers)-1, zhvi.LastCol())
}

func TestZillowDownloadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewZillowClient(srv.URL, srv.URL, nil)
	_, _, err := client.Download(context.Background())
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrKindNetwork, perr.Kind)
}

func TestMergeZillow(t *testing.T) {
	srv := zillowTestServer(t)
	client := NewZillowClient(srv.URL+"/zhvi.csv", srv.URL+"/zori.csv", nil)
	zhvi, zori, err := client.Download(context.Background())
	require.NoError(t, err)

	records, err := MergeZillow(zhvi, zori)
	require.NoError(t, err)

	// Inner join: Los Angeles has no rent row, Nowhere has no value row.
	require.Len(t, records, 2)

	ny := records[0]
	assert.Equal(t, int64(102001), ny.ZipCode)
	assert.Equal(t, "New York", ny.RegionName)
	assert.Equal(t, "New York", ny.City)
	assert.Equal(t, "Queens County", ny.County)
	assert.Equal(t, "NY", ny.State)
	require.NotNil(t, ny.ZMediumRent)
	assert.Equal(t, 3450.0, *ny.ZMediumRent)
	require.NotNil(t, ny.ZMediumValue)
	assert.Equal(t, 685000.0, *ny.ZMediumValue)

	// Houston's latest value cell is blank; the record survives with a nil
	// value and a non-nil rent.
	houston := records[1]
	assert.Equal(t, "Houston", houston.RegionName)
	assert.Nil(t, houston.ZMediumValue)
	require.NotNil(t, houston.ZMediumRent)
	assert.Equal(t, 1820.0, *houston.ZMediumRent)
}

func TestMergeZillowMissingColumn(t *testing.T) {
	zhvi := NewTable([]string{"RegionID", "SizeRank"}, [][]string{{"1", "1"}})
	zori := NewTable([]string{"RegionID", "2026-07-31"}, [][]string{{"1", "1500"}})

	_, err := MergeZillow(zhvi, zori)
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, ErrKindBadData, perr.Kind)
}

func TestMergeZillowNoOverlap(t *testing.T) {
	headers := []string{"RegionID", "SizeRank", "RegionName", "State", "CountyName", "2026-07-31"}
	zhvi := NewTable(headers, [][]string{{"1", "1", "A", "TX", "A County", "200000"}})
	zori := NewTable(headers, [][]string{{"2", "2", "B", "TX", "B County", "1500"}})

	_, err := MergeZillow(zhvi, zori)
	require.Error(t, err)
}

func TestParseFloat(t *testing.T) {
	assert.Nil(t, parseFloat(""))
	assert.Nil(t, parseFloat("  "))
	assert.Nil(t, parseFloat("n/a"))
	v := parseFloat(" 1234.5 ")
	require.NotNil(t, v)
	assert.Equal(t, 1234.5, *v)
}
