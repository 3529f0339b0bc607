package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInstrumentID(t *testing.T) {
	testCases := []struct {
		desc    string
		text    string
		want    InstrumentID
		wantErr bool
	}{
		{desc: "plain", text: "BTCUSDT.BINANCE", want: InstrumentID{Symbol: "BTCUSDT", Venue: "BINANCE"}},
		{desc: "dotted symbol", text: "BTC-PERP.X.DYDX", want: InstrumentID{Symbol: "BTC-PERP.X", Venue: "DYDX"}},
		{desc: "no venue", text: "BTCUSDT", wantErr: true},
		{desc: "empty venue", text: "BTCUSDT.", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := ParseInstrumentID(tc.text)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.text, got.String())
		})
	}
}

func TestInstrumentIDAsMapKey(t *testing.T) {
	m := map[InstrumentID]int{NewInstrumentID("ETHUSDT", "BINANCE"): 1}
	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ETHUSDT.BINANCE":1}`, string(data))

	var back map[InstrumentID]int
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m, back)
}

func TestInstrumentNotional(t *testing.T) {
	inst := Instrument{
		ID:            NewInstrumentID("BTCUSDT", "BINANCE"),
		SizePrecision: 3,
		QuoteCurrency: "USDT",
		BaseCurrency:  "BTC",
	}
	n := inst.NotionalValue(decimal.RequireFromString("0.5"), decimal.RequireFromString("20000"))
	assert.True(t, n.Amount.Equal(decimal.NewFromInt(10000)))
	assert.Equal(t, "USDT", n.Currency)
	assert.True(t, inst.MakeQty(decimal.RequireFromString("1.23456")).Equal(decimal.RequireFromString("1.235")))

	inst.IsInverse = true
	inst.Multiplier = decimal.NewFromInt(100)
	n = inst.NotionalValue(decimal.NewFromInt(10), decimal.NewFromInt(50000))
	assert.True(t, n.Amount.Equal(decimal.RequireFromString("0.02")))
	assert.Equal(t, "BTC", n.Currency)
}

func TestNewExternalClientOrderID(t *testing.T) {
	a, b := NewExternalClientOrderID(), NewExternalClientOrderID()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), "O-"))
}
