package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDimension_Add(t *testing.T) {
	t.Run("deduplicates by id and sorts", func(t *testing.T) {
		var d Dimension
		d.Add("6186", "FIOLASER SSA SHOPING")
		d.Add("5057", "SINGULAR PHARMA FEIR")
		d.Add("6186", "FIOLASER SSA SHOPING")

		assert.Equal(t, 2, d.Len())
		assert.Equal(t, []Member{
			{ID: "5057", Name: "SINGULAR PHARMA FEIR"},
			{ID: "6186", Name: "FIOLASER SSA SHOPING"},
		}, d.Members())
	})

	t.Run("ignores empty id", func(t *testing.T) {
		var d Dimension
		d.Add("", "nobody")
		assert.Equal(t, 0, d.Len())
		assert.Empty(t, d.Members())
	})

	t.Run("fills a missing name but keeps the first one", func(t *testing.T) {
		var d Dimension
		d.Add("120", "")
		d.Add("120", "MARC ETIQUETAS")
		d.Add("120", "OTHER NAME")

		assert.Equal(t, []Member{{ID: "120", Name: "MARC ETIQUETAS"}}, d.Members())
	})
}
