package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrix(t *testing.T) {
	m := NewMatrix()
	m.Set(3, "Neuron", 2)
	m.Set(0, "Astrocyte", 5)
	m.Add(0, "Astrocyte", 1)
	m.Add(0, "Microglia", 4)

	assert.Equal(t, 6.0, m.Get(0, "Astrocyte"))
	assert.Equal(t, 4.0, m.Get(0, "Microglia"))
	assert.Equal(t, 0.0, m.Get(9, "Missing"))

	assert.True(t, m.Has(3, "Neuron"))
	assert.False(t, m.Has(3, "Astrocyte"))

	// Stable sorted key orders
	assert.Equal(t, []int{0, 3}, m.Clusters())
	assert.Equal(t, []string{"Astrocyte", "Microglia", "Neuron"}, m.CellTypes())
}
