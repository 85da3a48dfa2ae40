package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"
)

func sampleResponse() *youtubeanalytics.QueryResponse {
	return &youtubeanalytics.QueryResponse{
		ColumnHeaders: []*youtubeanalytics.ResultTableColumnHeader{
			{Name: "day", ColumnType: "DIMENSION", DataType: "STRING"},
			{Name: "views", ColumnType: "METRIC", DataType: "INTEGER"},
			{Name: "averageViewPercentage", ColumnType: "METRIC", DataType: "FLOAT"},
		},
		Rows: [][]interface{}{
			{"2026-08-01", float64(120), 43.5},
			{"2026-08-02", float64(98), 39.1},
		},
	}
}

func TestResultTableCells(t *testing.T) {
	table := newResultTable(sampleResponse())

	assert.Len(t, table.rows, 2)
	row := table.rows[0]
	assert.Equal(t, "2026-08-01", table.cellString(row, "day"))
	assert.Equal(t, int64(120), table.cellInt(row, "views"))
	assert.InDelta(t, 43.5, table.cellFloat(row, "averageViewPercentage"), 0.001)
}

func TestResultTableMissingColumn(t *testing.T) {
	table := newResultTable(sampleResponse())
	row := table.rows[0]

	assert.Equal(t, "", table.cellString(row, "nope"))
	assert.Equal(t, int64(0), table.cellInt(row, "nope"))
	assert.Equal(t, 0.0, table.cellFloat(row, "nope"))
}

func TestResultTableShortRow(t *testing.T) {
	resp := sampleResponse()
	resp.Rows = [][]interface{}{{"2026-08-01"}}
	table := newResultTable(resp)

	row := table.rows[0]
	assert.Equal(t, "2026-08-01", table.cellString(row, "day"))
	assert.Equal(t, int64(0), table.cellInt(row, "views"))
}

func TestResultTableWrongCellType(t *testing.T) {
	resp := sampleResponse()
	resp.Rows = [][]interface{}{{float64(7), "oops", nil}}
	table := newResultTable(resp)

	row := table.rows[0]
	assert.Equal(t, "", table.cellString(row, "day"))
	assert.Equal(t, int64(0), table.cellInt(row, "views"))
	assert.Equal(t, 0.0, table.cellFloat(row, "averageViewPercentage"))
}

func TestResultTableEmpty(t *testing.T) {
	table := newResultTable(&youtubeanalytics.QueryResponse{})
	assert.Empty(t, table.rows)
}
