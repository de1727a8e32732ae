package dedupe

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	r := &Report{
		ID:          "scan-1",
		Root:        "/lib",
		Destination: "/rev",
		StartedAt:   time.Date(2024, 5, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600)),
		FinishedAt:  time.Date(2024, 5, 1, 14, 0, 3, 0, time.FixedZone("CEST", 2*3600)),
		Algorithm:   AverageHash,
		Threshold:   20,
		TotalFiles:  5,
		Images:      4,
		Videos:      1,
		Exact: []ExactGroupReport{
			{Digest: "abc", Size: 100, Paths: []string{"/lib/a.jpg", "/lib/b.jpg", "/lib/c.jpg"}},
		},
		Near: []NearGroupReport{
			{Fingerprint: "00000000000000ff", Paths: []string{"/lib/x.jpg", "/lib/y.jpg"}, Distances: []int{0, 4}},
		},
		Moved: []Move{
			{Source: "/lib/b.jpg", Destination: "/rev/b.jpg"},
			{Source: "/lib/c.jpg", Destination: "/rev/c.jpg"},
		},
	}
	r.Finalize()
	return r
}

func TestFinalize(t *testing.T) {
	r := sampleReport()

	assert.Equal(t, time.UTC, r.StartedAt.Location())
	assert.Equal(t, 12, r.StartedAt.Hour())
	assert.NotNil(t, r.Planned)
	assert.NotNil(t, r.Errors)
	assert.Equal(t, Summary{ExactGroups: 1, NearGroups: 1, Moved: 2, ReclaimableBytes: 200}, r.Summary)
	assert.False(t, r.HasErrors())
}

func TestReportJSONRoundTrip(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, r.WriteJSON(&buf))
	assert.Contains(t, buf.String(), `"exact_groups": [`)
	assert.Contains(t, buf.String(), `"planned": []`)

	got, err := ReadReport(&buf)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	_, err = ReadReport(bytes.NewBufferString("{"))
	assert.Error(t, err)
}

func TestReportCSV(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, r.WriteCSV(&buf))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"group", "kind", "id", "path", "size", "action", "destination"},
		{"1", "exact", "abc", "/lib/a.jpg", "100", "keep", ""},
		{"1", "exact", "abc", "/lib/b.jpg", "100", "move", "/rev/b.jpg"},
		{"1", "exact", "abc", "/lib/c.jpg", "100", "move", "/rev/c.jpg"},
		{"2", "near", "00000000000000ff", "/lib/x.jpg", "", "review", ""},
		{"2", "near", "00000000000000ff", "/lib/y.jpg", "", "review", ""},
	}, rows)
}
