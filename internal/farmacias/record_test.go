package farmacias

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 {
	return &f
}

func TestMapRecordIsTotal(t *testing.T) {
	result := MapRecord(UpstreamRecord{})
	require.Equal(t, Farmacia{}, result)

	encoded, err := json.Marshal(result)
	require.NoError(t, err)
	require.JSONEq(
		t,
		`{"nombre":"","direccion":"","telefono":"","horario":"","lat":null,"lng":null}`,
		string(encoded),
	)
}

func TestMapRecord(t *testing.T) {
	cases := []struct {
		name     string
		record   UpstreamRecord
		expected Farmacia
	}{
		{
			name: "full record",
			record: UpstreamRecord{
				"comuna_nombre":                "TEMUCO",
				"local_nombre":                 "Farmacia A",
				"local_direccion":              "Av. Alemania 0123",
				"local_telefono":               "+56452123456",
				"funcionamiento_hora_apertura": "09:00:00",
				"funcionamiento_hora_cierre":   "22:00:00",
				"local_lat":                    "-38.7",
				"local_lng":                    "-72.6",
			},
			expected: Farmacia{
				Name:    "Farmacia A",
				Address: "Av. Alemania 0123",
				Phone:   "+56452123456",
				Hours:   "09:00:00 – 22:00:00",
				Lat:     ptr(-38.7),
				Lng:     ptr(-72.6),
			},
		},
		{
			name: "numeric coordinates",
			record: UpstreamRecord{
				"local_lat": float64(-38.735),
				"local_lng": float64(-72.59),
			},
			expected: Farmacia{Lat: ptr(-38.735), Lng: ptr(-72.59)},
		},
		{
			name: "zero and empty coordinates are null",
			record: UpstreamRecord{
				"local_lat": float64(0),
				"local_lng": "",
			},
			expected: Farmacia{},
		},
		{
			name: "string zero is truthy",
			record: UpstreamRecord{
				"local_lat": "0",
			},
			expected: Farmacia{Lat: ptr(0)},
		},
		{
			name: "unparsable coordinates are null",
			record: UpstreamRecord{
				"local_lat": "sin dato",
				"local_lng": "Infinity",
			},
			expected: Farmacia{},
		},
		{
			name: "non-string scalars are rendered",
			record: UpstreamRecord{
				"local_telefono": float64(452123456),
				"local_nombre":   float64(0),
			},
			expected: Farmacia{Name: "0", Phone: "452123456"},
		},
	}

	for _, test := range cases {
		result := MapRecord(test.record)
		diff := cmp.Diff(test.expected, result)
		if diff != "" {
			t.Fatalf("%s: (-want +got)\n%s", test.name, diff)
		}
	}
}
