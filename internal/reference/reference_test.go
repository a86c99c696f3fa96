package reference

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromSets(t *testing.T) {
	ref := FromSets(map[string][]string{
		"Astrocyte": {"AQP4", "GFAP", "AQP4"},
		"Neuron":    {"RBFOX3"},
		"Unknown":   {},
	})

	assert.Equal(t, []string{"Astrocyte", "Neuron", "Unknown"}, ref.CellTypes())
	assert.Len(t, ref.Markers("Astrocyte"), 2)
	assert.Empty(t, ref.Markers("Unknown"))
	assert.Equal(t, 3, ref.Len())
}

const curatedTSV = `Organ	Context	Cell Type/ Cell State	Gene name(s)	Comment
brain	healthy	Astrocyte	AQP4,GFAP	canonical astrocyte markers
brain	healthy	Astrocyte	SLC1A3
brain	healthy	Neuron	RBFOX3
brain	tumor	Glioma	EGFR
liver	healthy	Hepatocyte	ALB
`

func TestParse(t *testing.T) {
	ref, err := Parse(strings.NewReader(curatedTSV), "brain", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"Astrocyte", "Neuron"}, ref.CellTypes())

	// Comma-separated cells are split and merged across rows
	astro := ref.Markers("Astrocyte")
	assert.Len(t, astro, 3)
	assert.Contains(t, astro, "AQP4")
	assert.Contains(t, astro, "SLC1A3")
}

func TestParseContext(t *testing.T) {
	ref, err := Parse(strings.NewReader(curatedTSV), "brain", "tumor")
	require.NoError(t, err)

	assert.Equal(t, []string{"Glioma"}, ref.CellTypes())
}

func TestParseUnknownOrgan(t *testing.T) {
	_, err := Parse(strings.NewReader(curatedTSV), "kidney", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReferenceParse)
	assert.Contains(t, err.Error(), "kidney")
}

func TestParseMissingHeader(t *testing.T) {
	_, err := Parse(strings.NewReader("Organ\tContext\tfoo\nbrain\thealthy\tx\n"), "brain", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReferenceParse)
}

const cellMarkerTSV = `speciesType	tissueType	cancerType	cellType	cellName	geneSymbol
Human	Brain	Normal	Normal cell	Astrocyte	[AQP4, GFAP]
Human	Brain	Normal	Normal cell	Neuron	RBFOX3
Human	Brain	Normal	Normal cell	Microglia	NA
Mouse	Brain	Normal	Normal cell	Astrocyte	Aqp4
Human	Liver	Normal	Normal cell	Hepatocyte	ALB
`

func TestParseCellMarker(t *testing.T) {
	ref, err := ParseCellMarker(strings.NewReader(cellMarkerTSV), "Human", "Brain")
	require.NoError(t, err)

	assert.Equal(t, []string{"Astrocyte", "Microglia", "Neuron"}, ref.CellTypes())

	// Bracketed, comma-separated symbols are split on non-word characters
	astro := ref.Markers("Astrocyte")
	assert.Len(t, astro, 2)
	assert.Contains(t, astro, "AQP4")
	assert.Contains(t, astro, "GFAP")

	// NA placeholders are dropped but the cell type still appears
	assert.Empty(t, ref.Markers("Microglia"))
}

func TestParseCellMarkerUnknownTissue(t *testing.T) {
	_, err := ParseCellMarker(strings.NewReader(cellMarkerTSV), "Human", "Kidney")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReferenceParse)
}

func TestParseUser(t *testing.T) {
	input := "Astrocyte\tAQP4,GFAP\nNeuron\tRBFOX3\nAstrocyte\tSLC1A3\n"

	ref, err := ParseUser(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Astrocyte", "Neuron"}, ref.CellTypes())
	assert.Len(t, ref.Markers("Astrocyte"), 3)
}

func TestParseUserMalformed(t *testing.T) {
	_, err := ParseUser(strings.NewReader("Astrocyte AQP4\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReferenceParse)
}
