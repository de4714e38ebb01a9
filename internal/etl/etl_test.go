package etl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

const orders = `order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at
a1,c1,delivered,2017-10-02 10:56:33,2017-10-02 11:07:15
a2,c2,delivered,2018-07-24 20:41:37,2018-07-26 03:24:27
a3,c3,canceled,2018-08-08 08:38:49,
a4,c4,shipped,,
`

var fixed = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }

func TestBuild(t *testing.T) {
	snap, err := Build(strings.NewReader(orders), Options{DatasetSource: "Olist", Now: fixed})
	require.NoError(t, err)

	assert.Equal(t, int64(4), snap.TotalTickets)
	assert.Equal(t, map[string]int64{"delivered": 2, "canceled": 1, "shipped": 1}, snap.BreakdownByStatus)
	assert.Equal(t, map[string]int64{"2017": 1, "2018": 2}, snap.BreakdownByYear)
	assert.Equal(t, "Olist", snap.DatasetSource)
	assert.Equal(t, "2024-05-01 09:30:00", snap.LastUpdate)
}

func TestBuildColumnOrderIndependent(t *testing.T) {
	in := "order_purchase_timestamp,order_status,order_id\n2016-09-04 21:15:19,delivered,x\n"
	snap, err := Build(strings.NewReader(in), Options{Now: fixed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.TotalTickets)
	assert.Equal(t, int64(1), snap.BreakdownByYear["2016"])
}

func TestBuildMissingColumns(t *testing.T) {
	_, err := Build(strings.NewReader("order_id,foo\n1,2\n"), Options{})
	require.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "order_status")
	assert.Contains(t, err.Error(), "order_purchase_timestamp")
}

func TestBuildEmptyInput(t *testing.T) {
	_, err := Build(strings.NewReader(""), Options{})
	assert.Error(t, err)
}

func TestBuildHeaderOnly(t *testing.T) {
	snap, err := Build(strings.NewReader("order_id,order_status,order_purchase_timestamp\n"), Options{Now: fixed})
	require.NoError(t, err)
	assert.Zero(t, snap.TotalTickets)
	assert.Empty(t, snap.BreakdownByStatus)
}

func TestRunWritesDocument(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "orders.csv")
	output := filepath.Join(dir, "processed", "metrics.json")
	require.NoError(t, os.WriteFile(input, []byte(orders), 0o644))

	_, err := Run(input, output, Options{DatasetSource: "Olist E-Commerce (Kaggle)", Now: fixed})
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "Olist E-Commerce (Kaggle)", doc["dataset_source"])
	assert.Equal(t, "2024-05-01 09:30:00", doc["last_update"])
	assert.Equal(t, float64(4), doc["kpi_total_tickets"])
	assert.Contains(t, doc, "breakdown_by_status")
	assert.Contains(t, doc, "breakdown_by_year")
	assert.NotContains(t, doc, "error")

	var snap types.MetricsSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "4", snap.TotalTickets.Text())
	assert.Equal(t, "2", snap.StatusCount(types.StatusDelivered))

	entries, err := os.ReadDir(filepath.Dir(output))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "metrics.json")
	_, err := Run(filepath.Join(dir, "nope.csv"), output, Options{})
	require.ErrorIs(t, err, os.ErrNotExist)

	_, statErr := os.Stat(output)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}
