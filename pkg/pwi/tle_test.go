package pwi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const starlinkTLE = `
	0 STARLINK-5833
	1 55773U 23028AJ  25098.97241231  .00000576  00000-0  56023-4 0  9993
	2 55773  70.0000 348.4786 0001618 274.5576  85.5398 14.98332157116399
`

func TestParseTLE(t *testing.T) {
	t.Run("three line set with name", func(t *testing.T) {
		tle, err := ParseTLE(starlinkTLE)
		require.NoError(t, err)

		assert.Equal(t, "0 STARLINK-5833", tle.Line0)
		assert.Equal(t, "STARLINK-5833", tle.Name())
		assert.Contains(t, tle.Line1, "55773U")
		assert.Contains(t, tle.Line2, "55773")
	})

	t.Run("two line set without name", func(t *testing.T) {
		tle, err := ParseTLE("1 25544U 98067A   24001.50000000  .00016717  00000-0  10270-3 0  9999\n" +
			"2 25544  51.6400 208.9163 0006317  69.9862  25.2906 15.49560532 00005")
		require.NoError(t, err)

		assert.Empty(t, tle.Line0)
		assert.Empty(t, tle.Name())
	})

	t.Run("wrong line count", func(t *testing.T) {
		_, err := ParseTLE("1 25544U 98067A\n")

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("lines out of order", func(t *testing.T) {
		_, err := ParseTLE("2 25544  51.6400\n1 25544U 98067A\n")

		var validationErr *ValidationError
		require.ErrorAs(t, err, &validationErr)
	})
}

func TestTLEValidate(t *testing.T) {
	valid := TLE{
		Line1: "1 25544U 98067A   24001.50000000  .00016717  00000-0  10270-3 0  9999",
		Line2: "2 25544  51.6400 208.9163 0006317  69.9862  25.2906 15.49560532 00005",
	}
	assert.NoError(t, valid.Validate())

	assert.Error(t, TLE{Line1: "x", Line2: valid.Line2}.Validate())
	assert.Error(t, TLE{Line1: valid.Line1, Line2: "x"}.Validate())
}
