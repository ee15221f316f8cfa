package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWeight(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		grams float64
		label string
	}{
		{"grams", "3.5g", 3.5, "3.5g"},
		{"grams with space", "3.5 g", 3.5, "3.5g"},
		{"gram word", "7 grams", 7, "7g"},
		{"ounce", "1oz", 28, "1oz"},
		{"ounce word", "1 ounce", 28, "1oz"},
		{"two ounces", "2 oz", 56, "2oz"},
		{"milligrams keep mg label", "100mg", 0.1, "100mg"},
		{"pound", "1 lb", 453.592, "453.592g"},
		{"fraction oz", "1/8 oz", 3.5, "3.5g"},
		{"fraction quarter oz", "1/4 oz", 7, "7g"},
		{"named eighth", "eighth", 3.5, "3.5g"},
		{"named quarter", "Quarter", 7, "7g"},
		{"named half", "half", 14, "14g"},
		{"bare ounce word", "ounce", 28, "1oz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, ok := ParseWeight(tt.in)
			require.True(t, ok)
			assert.InDelta(t, tt.grams, w.Grams, 0.0001)
			assert.Equal(t, tt.label, w.Label)
		})
	}

	t.Run("unparseable input", func(t *testing.T) {
		for _, in := range []string{"", "large", "a bunch", "x8"} {
			_, ok := ParseWeight(in)
			assert.False(t, ok, "expected no parse for %q", in)
		}
	})
}

func TestExtractWeightFromName(t *testing.T) {
	t.Run("trailing parenthesized weight", func(t *testing.T) {
		name, w, ok := ExtractWeightFromName("Blue Dream (3.5g)")
		require.True(t, ok)
		assert.Equal(t, "Blue Dream", name)
		assert.InDelta(t, 3.5, w.Grams, 0.0001)
	})

	t.Run("trailing fraction", func(t *testing.T) {
		name, w, ok := ExtractWeightFromName("Sour Diesel 1/8 oz")
		require.True(t, ok)
		assert.Equal(t, "Sour Diesel", name)
		assert.InDelta(t, 3.5, w.Grams, 0.0001)
	})

	t.Run("trailing numeric unit", func(t *testing.T) {
		name, w, ok := ExtractWeightFromName("OG Kush - 7g")
		require.True(t, ok)
		assert.Equal(t, "OG Kush", name)
		assert.InDelta(t, 7, w.Grams, 0.0001)
	})

	t.Run("trailing named fraction", func(t *testing.T) {
		name, w, ok := ExtractWeightFromName("GSC Eighth")
		require.True(t, ok)
		assert.Equal(t, "GSC", name)
		assert.InDelta(t, 3.5, w.Grams, 0.0001)
	})

	t.Run("no weight token", func(t *testing.T) {
		name, _, ok := ExtractWeightFromName("Wedding Cake")
		assert.False(t, ok)
		assert.Equal(t, "Wedding Cake", name)
	})

	t.Run("number without unit is not a weight", func(t *testing.T) {
		_, _, ok := ExtractWeightFromName("Cookies 41")
		assert.False(t, ok)
	})
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "3.5g", FormatLabel(3.5))
	assert.Equal(t, "1oz", FormatLabel(28))
	assert.Equal(t, "2oz", FormatLabel(56))
	assert.Equal(t, "14g", FormatLabel(14))
	assert.Equal(t, "5g", FormatLabel(5))
	assert.Equal(t, "1.75g", FormatLabel(1.75))
}
