package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	cases := map[string]string{
		"100.00":   "100.00",
		"100,50":   "100.50",
		"1 234.56": "1234.56",
		"-42.00":   "-42.00",
	}
	for in, want := range cases {
		m, err := ParseMoney(in)
		require.NoError(t, err)
		require.Equal(t, want, m.String())
	}
}

func TestParseMoneyEmpty(t *testing.T) {
	_, err := ParseMoney("   ")
	require.Error(t, err)
}

func TestMoneyArithmetic(t *testing.T) {
	a := FromOre(10050)
	b := FromOre(5025)
	require.Equal(t, "50.25", a.Sub(b).String())
	require.True(t, a.Add(b).Equal(FromOre(15075)))
	require.True(t, a.Sub(a).IsZero())
}

func TestSplitEvenAbsorbsResidual(t *testing.T) {
	total, err := ParseMoney("100.00")
	require.NoError(t, err)
	parts := SplitEven(total, 3)
	require.Len(t, parts, 3)

	sum := Zero()
	for _, p := range parts {
		sum = sum.Add(p)
	}
	require.True(t, sum.Equal(total))
	require.Equal(t, "33.33", parts[0].String())
	require.Equal(t, "33.33", parts[1].String())
	require.Equal(t, "33.34", parts[2].String())
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	m, err := ParseMoney("1234.56")
	require.NoError(t, err)
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.Equal(t, `"1234.56"`, string(data))

	var out Money
	require.NoError(t, json.Unmarshal(data, &out))
	require.True(t, m.Equal(out))
}

func TestMaxZero(t *testing.T) {
	pos, _ := ParseMoney("10.00")
	neg, _ := ParseMoney("-10.00")
	require.True(t, MaxZero(pos).Equal(pos))
	require.True(t, MaxZero(neg).IsZero())
}
