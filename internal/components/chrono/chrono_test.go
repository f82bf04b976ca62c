package chrono

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestISOTimestamp(t *testing.T) {
	santiago := time.FixedZone("CLT", -4*60*60)

	cases := []struct {
		at       time.Time
		expected string
	}{
		{
			at:       time.Date(2024, time.August, 26, 10, 3, 1, 512_000_000, santiago),
			expected: "2024-08-26T14:03:01.512Z",
		},
		{
			at:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
			expected: "2024-01-01T00:00:00.000Z",
		},
	}

	for _, test := range cases {
		require.Equal(t, test.expected, ISOTimestamp(test.at))
	}
}

func TestFixedImpl(t *testing.T) {
	at := time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC)
	var api API = FixedImpl{At: at}
	require.Equal(t, at, api.Now())
}
