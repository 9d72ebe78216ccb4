package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/internal/domain"
)

func TestExecutionsCSVRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	filename := filepath.Join(tmpDir, "execs.csv")

	expiry := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	execs := []*domain.Execution{
		{
			ID: "e1", UserID: "u1",
			Timestamp: time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC),
			Symbol:    "AAPL", Side: domain.SideBuy, Quantity: 100, Price: 189.5,
			Fees: 1.25, Currency: "USD", Venue: "schwab", OrderID: "o1", ExecID: "x1",
			Instrument: domain.InstrumentEquity, BrokerAccountID: "acct1",
		},
		{
			ID: "e2", UserID: "u1",
			Timestamp: time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC),
			Symbol:    "AAPL 240621C00200000", Side: domain.SideSell, Quantity: 2, Price: 3.5,
			Currency: "USD", Instrument: domain.InstrumentOption,
			Option: &domain.OptionContract{
				Underlying: "AAPL", Expiry: expiry, Strike: 200, Type: domain.Call,
			},
		},
	}

	require.NoError(t, WriteExecutionsToCSV(execs, filename))

	got, err := ReadExecutionsFromCSV(filename)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "e1", got[0].ID)
	assert.Equal(t, domain.SideBuy, got[0].Side)
	assert.Equal(t, 189.5, got[0].Price)
	assert.Equal(t, 1.25, got[0].Fees)
	assert.Equal(t, "acct1", got[0].BrokerAccountID)
	assert.Nil(t, got[0].Option)
	assert.True(t, got[0].Timestamp.Equal(execs[0].Timestamp))

	require.NotNil(t, got[1].Option)
	assert.Equal(t, "AAPL", got[1].Option.Underlying)
	assert.Equal(t, 200.0, got[1].Option.Strike)
	assert.Equal(t, domain.Call, got[1].Option.Type)
	assert.True(t, got[1].Option.Expiry.Equal(expiry))
}

func TestReadExecutionsFromCSV_BareDateExpiry(t *testing.T) {
	tmpDir := t.TempDir()
	filename := filepath.Join(tmpDir, "execs.csv")

	csv := "id,user_id,timestamp,symbol,side,quantity,price,fees,currency,venue,order_id,exec_id,instrument_type,multiplier,broker_account_id,underlying,option_expiry,option_strike,option_type\n" +
		"e1,u1,2024-05-02T14:00:00Z,AAPL opt,buy,2,3.5,1,USD,,,,option,100,,AAPL,2024-06-21,200,call\n"
	require.NoError(t, os.WriteFile(filename, []byte(csv), 0644))

	got, err := ReadExecutionsFromCSV(filename)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Option)
	assert.Equal(t, 2024, got[0].Option.Expiry.Year())
	assert.Equal(t, time.June, got[0].Option.Expiry.Month())
	assert.Equal(t, 100.0, got[0].Multiplier)
}

func TestReadExecutionsFromCSV_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, content string) string {
		p := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		return p
	}
	header := "id,user_id,timestamp,symbol,side,quantity,price,fees,currency,venue,order_id,exec_id,instrument_type,multiplier,broker_account_id,underlying,option_expiry,option_strike,option_type\n"

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadExecutionsFromCSV(filepath.Join(tmpDir, "nope.csv"))
		assert.Error(t, err)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		p := write("bad_ts.csv", header+"e1,u1,yesterday,AAPL,buy,1,10,0,USD,,,,equity,0,,,,,\n")
		_, err := ReadExecutionsFromCSV(p)
		assert.ErrorContains(t, err, "timestamp")
	})

	t.Run("bad quantity", func(t *testing.T) {
		p := write("bad_qty.csv", header+"e1,u1,2024-05-01T14:00:00Z,AAPL,buy,lots,10,0,USD,,,,equity,0,,,,,\n")
		_, err := ReadExecutionsFromCSV(p)
		assert.ErrorContains(t, err, "quantity")
	})

	t.Run("wrong column count", func(t *testing.T) {
		p := write("short.csv", header+"e1,u1\n")
		_, err := ReadExecutionsFromCSV(p)
		assert.Error(t, err)
	})
}
