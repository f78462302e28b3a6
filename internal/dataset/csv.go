package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/verte-zerg/morsetrain/internal/model"
)

var csvHeader = []string{"duration_ms", "is_key_down", "label"}

// WriteCSV writes elements with a header row.
func WriteCSV(w io.Writer, elements []model.TimingElement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range elements {
		keyDown := "0"
		if e.IsKeyDown {
			keyDown = "1"
		}
		record := []string{
			strconv.FormatFloat(e.DurationMs, 'f', -1, 64),
			keyDown,
			strconv.Itoa(int(e.Label)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses rows written by WriteCSV. Every row must carry a known label, a
// positive duration and a key state consistent with its label. All elements are
// placed in run 0.
func ReadCSV(r io.Reader) ([]model.TimingElement, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, name := range csvHeader {
		if header[i] != name {
			return nil, fmt.Errorf("unexpected csv column %d: %q, want %q", i, header[i], name)
		}
	}
	var out []model.TimingElement
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		e, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func parseRecord(record []string) (model.TimingElement, error) {
	duration, err := strconv.ParseFloat(record[0], 64)
	if err != nil {
		return model.TimingElement{}, fmt.Errorf("invalid duration %q: %w", record[0], err)
	}
	var keyDown bool
	switch record[1] {
	case "0":
	case "1":
		keyDown = true
	default:
		return model.TimingElement{}, fmt.Errorf("invalid key state %q", record[1])
	}
	id, err := strconv.Atoi(record[2])
	if err != nil {
		return model.TimingElement{}, fmt.Errorf("invalid label %q: %w", record[2], err)
	}
	label, err := model.ParseClass(id)
	if err != nil {
		return model.TimingElement{}, err
	}
	e := model.TimingElement{DurationMs: duration, IsKeyDown: keyDown, Label: label}
	if err := e.Validate(); err != nil {
		return model.TimingElement{}, err
	}
	return e, nil
}
