package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"tradeledger/internal/domain"
)

// executionHeader is the canonical column order for normalized execution
// CSV files. Option columns are left blank for linear instruments.
var executionHeader = []string{
	"id", "user_id", "timestamp", "symbol", "side", "quantity", "price", "fees",
	"currency", "venue", "order_id", "exec_id", "instrument_type", "multiplier",
	"broker_account_id", "underlying", "option_expiry", "option_strike", "option_type",
}

// ReadExecutionsFromCSV parses a normalized execution export. Timestamps are
// RFC3339; option_expiry accepts RFC3339 or a bare 2006-01-02 date.
func ReadExecutionsFromCSV(filename string) ([]*domain.Execution, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(executionHeader)

	// Header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var execs []*domain.Execution
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		exec, err := parseExecutionRecord(record)
		if err != nil {
			return nil, fmt.Errorf("invalid execution on CSV line %d: %w", line, err)
		}
		execs = append(execs, exec)
	}
	return execs, nil
}

func parseExecutionRecord(record []string) (*domain.Execution, error) {
	ts, err := time.Parse(time.RFC3339, record[2])
	if err != nil {
		return nil, fmt.Errorf("bad timestamp '%s': %w", record[2], err)
	}
	qty, err := strconv.ParseFloat(record[5], 64)
	if err != nil {
		return nil, fmt.Errorf("bad quantity '%s': %w", record[5], err)
	}
	price, err := strconv.ParseFloat(record[6], 64)
	if err != nil {
		return nil, fmt.Errorf("bad price '%s': %w", record[6], err)
	}
	fees := 0.0
	if record[7] != "" {
		if fees, err = strconv.ParseFloat(record[7], 64); err != nil {
			return nil, fmt.Errorf("bad fees '%s': %w", record[7], err)
		}
	}
	multiplier := 0.0
	if record[13] != "" {
		if multiplier, err = strconv.ParseFloat(record[13], 64); err != nil {
			return nil, fmt.Errorf("bad multiplier '%s': %w", record[13], err)
		}
	}

	exec := &domain.Execution{
		ID:              record[0],
		UserID:          record[1],
		Timestamp:       ts,
		Symbol:          record[3],
		Side:            domain.Side(record[4]),
		Quantity:        qty,
		Price:           price,
		Fees:            fees,
		Currency:        record[8],
		Venue:           record[9],
		OrderID:         record[10],
		ExecID:          record[11],
		Instrument:      domain.InstrumentType(record[12]),
		Multiplier:      multiplier,
		BrokerAccountID: record[14],
	}

	if record[15] != "" {
		expiry, err := parseExpiry(record[16])
		if err != nil {
			return nil, err
		}
		strike := 0.0
		if record[17] != "" {
			if strike, err = strconv.ParseFloat(record[17], 64); err != nil {
				return nil, fmt.Errorf("bad option_strike '%s': %w", record[17], err)
			}
		}
		exec.Option = &domain.OptionContract{
			Underlying: record[15],
			Expiry:     expiry,
			Strike:     strike,
			Type:       domain.OptionType(record[18]),
		}
	}

	return exec, nil
}

func parseExpiry(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad option_expiry '%s': %w", value, err)
	}
	return t, nil
}

// WriteExecutionsToCSV writes executions in the canonical column order.
func WriteExecutionsToCSV(execs []*domain.Execution, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write(executionHeader)

	for _, e := range execs {
		var underlying, expiry, strike, optType string
		if e.Option != nil {
			underlying = e.Option.Underlying
			if !e.Option.Expiry.IsZero() {
				expiry = e.Option.Expiry.Format(time.RFC3339)
			}
			strike = strconv.FormatFloat(e.Option.Strike, 'f', -1, 64)
			optType = string(e.Option.Type)
		}
		writer.Write([]string{
			e.ID,
			e.UserID,
			e.Timestamp.Format(time.RFC3339),
			e.Symbol,
			string(e.Side),
			strconv.FormatFloat(e.Quantity, 'f', -1, 64),
			strconv.FormatFloat(e.Price, 'f', -1, 64),
			strconv.FormatFloat(e.Fees, 'f', -1, 64),
			e.Currency,
			e.Venue,
			e.OrderID,
			e.ExecID,
			string(e.Instrument),
			strconv.FormatFloat(e.Multiplier, 'f', -1, 64),
			e.BrokerAccountID,
			underlying,
			expiry,
			strike,
			optType,
		})
	}
	return writer.Error()
}
