package ranking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rankedTSV = `cluster	rank	gene	z_score	adj_pval
0	0	GAD1	5.2	0.001
0	1	GAD2	4.8	0.002
1	0	AQP4	6.0	0.0001
1	1	GFAP	5.5	0.0005
`

func TestRead(t *testing.T) {
	table, err := Read(strings.NewReader(rankedTSV))
	require.NoError(t, err)

	assert.Equal(t, 4, table.Len())
	assert.Equal(t, []int{0, 1}, table.Clusters())

	rec := table.ClusterRecords(1)[0]
	assert.Equal(t, "AQP4", rec.Gene)
	assert.Equal(t, 6.0, rec.ZScore)
	assert.Equal(t, 0.0001, rec.AdjPValue)
}

func TestReadColumnOrderIndependent(t *testing.T) {
	input := "gene\tadj_pval\tcluster\tz_score\trank\nGAD1\t0.001\t0\t5.2\t0\n"

	table, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "GAD1", table.ClusterRecords(0)[0].Gene)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "missing column",
			input:   "cluster\trank\tgene\tz_score\nfoo\n",
			wantErr: "missing required column",
		},
		{
			name:    "bad cluster id",
			input:   "cluster\trank\tgene\tz_score\tadj_pval\nx\t0\tGAD1\t5.2\t0.001\n",
			wantErr: "invalid cluster id",
		},
		{
			name:    "negative rank",
			input:   "cluster\trank\tgene\tz_score\tadj_pval\n0\t-1\tGAD1\t5.2\t0.001\n",
			wantErr: "negative rank",
		},
		{
			name:    "empty gene",
			input:   "cluster\trank\tgene\tz_score\tadj_pval\n0\t0\t \t5.2\t0.001\n",
			wantErr: "empty gene symbol",
		},
		{
			name:    "short row",
			input:   "cluster\trank\tgene\tz_score\tadj_pval\n0\t0\n",
			wantErr: "fields",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestReadEmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingPrerequisite)

	_, err = Read(strings.NewReader("cluster\trank\tgene\tz_score\tadj_pval\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("testdata/does_not_exist.tsv")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingPrerequisite)
}
