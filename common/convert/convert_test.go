package convert

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnixMillis(t *testing.T) {
	t.Parallel()
	ts := time.Date(2020, 1, 1, 0, 0, 0, 5e6, time.UTC)
	assert.Equal(t, int64(1577836800005), UnixMillis(ts))
}

func TestRecvWindow(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int64(5000), RecvWindow(5*time.Second))
}

func TestTimeFromUnixMilliString(t *testing.T) {
	t.Parallel()
	tm, err := TimeFromUnixMilliString("1577836800005")
	require.NoError(t, err)
	assert.Equal(t, int64(1577836800005), tm.UnixMilli())

	tm, err = TimeFromUnixMilliString("")
	require.NoError(t, err)
	assert.True(t, tm.IsZero())

	_, err = TimeFromUnixMilliString("abc")
	assert.Error(t, err)
}

func TestBoolPtr(t *testing.T) {
	t.Parallel()
	assert.True(t, *BoolPtr(true))
	assert.False(t, *BoolPtr(false))
}

func TestDecimalFromString(t *testing.T) {
	t.Parallel()
	d, err := DecimalFromString(" 1.25 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("1.25")))

	d, err = DecimalFromString("")
	require.NoError(t, err)
	assert.True(t, d.IsZero())

	_, err = DecimalFromString("1.2.3")
	assert.Error(t, err)
}

func TestDecimalPlaces(t *testing.T) {
	t.Parallel()
	for input, exp := range map[string]int{
		"1":       0,
		"0.1":     1,
		"0.00010": 4,
		"10.000":  0,
		"":        0,
		"0.00001": 5,
	} {
		assert.Equalf(t, exp, DecimalPlaces(input), "DecimalPlaces(%q)", input)
	}
}

func TestFractionDigits(t *testing.T) {
	t.Parallel()
	for input, exp := range map[string]int{
		"1":       0,
		"0.1":     1,
		"0.0010":  4,
		"0.00010": 5,
		"10.000":  3,
		" 0.50 ":  2,
		"":        0,
		"0.00001": 5,
	} {
		assert.Equalf(t, exp, FractionDigits(input), "FractionDigits(%q)", input)
	}
}
