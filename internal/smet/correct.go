package smet

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// CorrectionOp is the edit applied over a correction's index range.
type CorrectionOp string

const (
	// OpZero sets every sample in the range to 0.
	OpZero CorrectionOp = "zero"
	// OpCopyPrevious replaces each sample with the one before it.
	OpCopyPrevious CorrectionOp = "copy_previous"
	// OpOffset adds Value to every non-missing sample.
	OpOffset CorrectionOp = "offset"
)

// Correction is one hand-curated fix for a known sensor fault. Indices refer
// to sample positions of a run's series; End is exclusive.
type Correction struct {
	StationID string       `yaml:"station_id" validate:"required"`
	Field     Field        `yaml:"field" validate:"required,oneof=TA RH TSG TSS HS VW DW ISWR"`
	Start     int          `yaml:"start" validate:"gte=0"`
	End       int          `yaml:"end" validate:"gtfield=Start"`
	Op        CorrectionOp `yaml:"op" validate:"required,oneof=zero copy_previous offset"`
	Value     float64      `yaml:"value"`
	Note      string       `yaml:"note,omitempty"`
}

// Corrections is a loaded correction table.
type Corrections []Correction

var validate = validator.New()

// LoadCorrections reads a YAML correction table. An empty path yields an
// empty table.
func LoadCorrections(path string) (Corrections, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corrections: %w", err)
	}
	return ParseCorrections(data)
}

// ParseCorrections decodes and validates a YAML correction table.
func ParseCorrections(data []byte) (Corrections, error) {
	var doc struct {
		Corrections Corrections `yaml:"corrections"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode corrections: %w", err)
	}

	for i, c := range doc.Corrections {
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidCorrection, i, err)
		}
	}
	return doc.Corrections, nil
}

// ForStation returns the records that apply to stationID, in table order.
func (cs Corrections) ForStation(stationID string) Corrections {
	var out Corrections
	for _, c := range cs {
		if c.StationID == stationID {
			out = append(out, c)
		}
	}
	return out
}

// Apply runs every record for stationID against the series and returns the
// number of samples touched. Ranges are clipped to the series length, so a
// record written for a full season is harmless on a shorter run.
func (cs Corrections) Apply(stationID string, s *Series) int {
	touched := 0
	for _, c := range cs.ForStation(stationID) {
		col, ok := s.Columns[c.Field]
		if !ok {
			continue
		}
		start, end := c.Start, c.End
		if end > len(col) {
			end = len(col)
		}

		for i := start; i < end; i++ {
			switch c.Op {
			case OpZero:
				col[i] = 0
			case OpCopyPrevious:
				if i == 0 {
					continue
				}
				col[i] = col[i-1]
			case OpOffset:
				if col[i] == NoData {
					continue
				}
				col[i] += c.Value
			default:
				continue
			}
			touched++
		}
	}
	return touched
}
