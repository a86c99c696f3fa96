package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cellsTSV = `cell_id	louvain	n_genes
AAACCTG-1	0	1523
AAACGGG-1	0	2011
AAAGATG-1	2	1874
`

func TestRead(t *testing.T) {
	cells, err := Read(strings.NewReader(cellsTSV), "louvain")
	require.NoError(t, err)

	assert.Equal(t, 3, cells.Len())
	assert.Equal(t, []int{0, 0, 2}, cells.Clusters())
}

func TestReadMissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader(cellsTSV), "leiden")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leiden")
}

func TestReadBadClusterID(t *testing.T) {
	input := "cell_id\tlouvain\nAAACCTG-1\tnot_a_number\n"
	_, err := Read(strings.NewReader(input), "louvain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cluster id")
}

func TestWriteLabeled(t *testing.T) {
	cells, err := Read(strings.NewReader(cellsTSV), "louvain")
	require.NoError(t, err)

	var sb strings.Builder
	err = cells.WriteLabeled(&sb, []string{"Astrocyte", "Astrocyte", "NA"})
	require.NoError(t, err)

	want := "cell_id\tlouvain\tn_genes\tscorect\n" +
		"AAACCTG-1\t0\t1523\tAstrocyte\n" +
		"AAACGGG-1\t0\t2011\tAstrocyte\n" +
		"AAAGATG-1\t2\t1874\tNA\n"
	assert.Equal(t, want, sb.String())
}

func TestWriteLabeledLengthMismatch(t *testing.T) {
	cells, err := Read(strings.NewReader(cellsTSV), "louvain")
	require.NoError(t, err)

	var sb strings.Builder
	err = cells.WriteLabeled(&sb, []string{"Astrocyte"})
	require.Error(t, err)
}
