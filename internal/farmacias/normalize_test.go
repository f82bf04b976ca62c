package farmacias

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeComuna(t *testing.T) {
	table := []struct {
		input    any
		expected string
	}{
		{input: "temuco", expected: "temuco"},
		{input: " Temuco ", expected: "temuco"},
		{input: "PADRE LAS CASAS\t\n", expected: "padre las casas"},
		{input: "Ñuñoa", expected: "ñuñoa"},
		{input: "", expected: ""},
		{input: nil, expected: ""},
		{input: float64(0), expected: ""},
		{input: false, expected: ""},
		{input: float64(13101), expected: "13101"},
	}

	for _, row := range table {
		require.Equal(t, row.expected, NormalizeComuna(row.input), "input: %#v", row.input)
	}
}

func TestNormalizeComunaIdempotent(t *testing.T) {
	inputs := []string{"", " Temuco ", "TEMUCO", "  padre las CASAS  ", "Ñuñoa", "\tlos ángeles\n"}
	for _, input := range inputs {
		once := NormalizeComuna(input)
		require.Equal(t, once, NormalizeComuna(once))
	}

	require.Equal(t, NormalizeComuna("temuco"), NormalizeComuna(" Temuco "))
}

func TestBuildHorario(t *testing.T) {
	table := []struct {
		apertura any
		cierre   any
		expected string
	}{
		{apertura: "09:00", cierre: "20:00", expected: "09:00 – 20:00"},
		{apertura: " 09:00 ", cierre: "20:00\n", expected: "09:00 – 20:00"},
		{apertura: "09:00", cierre: "", expected: "09:00"},
		{apertura: "", cierre: "20:00", expected: "20:00"},
		{apertura: nil, cierre: "20:00", expected: "20:00"},
		{apertura: "", cierre: "", expected: ""},
		{apertura: nil, cierre: nil, expected: ""},
		{apertura: "   ", cierre: "  ", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, BuildHorario(row.apertura, row.cierre))
	}
}
