package market

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeriesCSVSelectsValueColumn(t *testing.T) {
	const data = `date,spot_rate_bey,spot_rate_eff_ann
2024-03-15,0.0512,0.0525
2024-06-01,0.0508,0.0521
`

	s, err := ReadSeriesCSV(strings.NewReader(data), LoadOptions{ValueColumn: "spot_rate_eff_ann"})
	require.NoError(t, err)

	assert.Equal(t, "spot_rate_eff_ann", s.Name())
	assert.Equal(t, 2, s.Len())
	v, err := s.At(d(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, 0.0525, v)
}

func TestReadSeriesCSVTwoColumnDefault(t *testing.T) {
	const data = `Date,Level
2024-03-15,"5,123.40"
2024-03-18,5150.00

`

	s, err := ReadSeriesCSV(strings.NewReader(data), LoadOptions{Name: "index_levels"})
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	v, err := s.At(d(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, 5123.40, v)
}

func TestReadSeriesCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts LoadOptions
		want string
	}{
		{
			name: "missing value column",
			data: "date,a,b\n2024-03-15,1,2\n",
			opts: LoadOptions{ValueColumn: "rate"},
			want: `value column "rate" not found`,
		},
		{
			name: "wide file without selector",
			data: "date,a,b\n2024-03-15,1,2\n",
			opts: LoadOptions{},
			want: "value column must be named",
		},
		{
			name: "missing date column",
			data: "day,rate\n2024-03-15,0.05\n",
			opts: LoadOptions{ValueColumn: "rate"},
			want: `date column "date" not found`,
		},
		{
			name: "bad value",
			data: "date,rate\n2024-03-15,n/a\n",
			opts: LoadOptions{ValueColumn: "rate"},
			want: "row 2",
		},
		{
			name: "bad date",
			data: "date,rate\nMarch,0.05\n",
			opts: LoadOptions{ValueColumn: "rate"},
			want: "row 2",
		},
		{
			name: "no data rows",
			data: "date,rate\n",
			opts: LoadOptions{ValueColumn: "rate"},
			want: "at least one data row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSeriesCSV(strings.NewReader(tt.data), tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadSeriesCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rates.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,rate\n2024-03-15,0.05\n"), 0o644))

	s, err := LoadSeriesCSV(path, LoadOptions{ValueColumn: "rate"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	_, err = LoadSeriesCSV(filepath.Join(dir, "missing.csv"), LoadOptions{ValueColumn: "rate"})
	assert.Error(t, err)
}

func TestReadSeriesJSON(t *testing.T) {
	const data = `[
		{"date": "2024-03-15", "value": 0.013},
		{"date": "2024-06-01", "value": 0.014}
	]`

	s, err := ReadSeriesJSON(strings.NewReader(data), "dividend_yields")
	require.NoError(t, err)

	assert.Equal(t, "dividend_yields", s.Name())
	assert.Equal(t, 2, s.Len())
	v, err := s.At(d(2024, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 0.013, v)
}

func TestReadSeriesJSONBadDate(t *testing.T) {
	_, err := ReadSeriesJSON(strings.NewReader(`[{"date": "soon", "value": 1}]`), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 0")
}
