package analytics

import (
	youtubeanalytics "google.golang.org/api/youtubeanalytics/v2"
)

// The Analytics API returns an untyped result table: column headers plus
// rows of interface{} cells (strings for dimensions, float64 for metrics).
// resultTable gives the query code named access to the cells.
type resultTable struct {
	idx  map[string]int
	rows [][]interface{}
}

func newResultTable(resp *youtubeanalytics.QueryResponse) *resultTable {
	t := &resultTable{idx: make(map[string]int, len(resp.ColumnHeaders))}
	for i, h := range resp.ColumnHeaders {
		t.idx[h.Name] = i
	}
	t.rows = resp.Rows
	return t
}

func (t *resultTable) cellString(row []interface{}, name string) string {
	i, ok := t.idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	s, _ := row[i].(string)
	return s
}

func (t *resultTable) cellFloat(row []interface{}, name string) float64 {
	i, ok := t.idx[name]
	if !ok || i >= len(row) {
		return 0
	}
	switch v := row[i].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

func (t *resultTable) cellInt(row []interface{}, name string) int64 {
	return int64(t.cellFloat(row, name))
}
