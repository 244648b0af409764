package smet

// Radiation samples at or below this value are sensor faults, not night-time
// offsets, and become NoData.
const radiationFaultThreshold = -100.0

// Normalize converts a raw provider series into SMET units and fills every
// absent sample with NoData.
func Normalize(raw RawSeries) (*Series, error) {
	n := len(raw.Timestamps)

	column := func(f Field) ([]*float64, error) {
		vals, ok := raw.Fields[f]
		if !ok {
			return nil, &MissingFieldError{Field: f}
		}
		if len(vals) != n {
			return nil, &FormatMismatchError{Field: f, Got: len(vals), Want: n}
		}
		return vals, nil
	}

	out := &Series{
		Timestamps: append(raw.Timestamps[:0:0], raw.Timestamps...),
		Columns:    make(map[Field][]float64, len(OutputFields)),
	}

	conversions := []struct {
		field   Field
		convert func(float64) float64
	}{
		{FieldTA, celsiusToKelvin},
		{FieldTSS, celsiusToKelvin},
		{FieldRH, percentToFraction},
		{FieldVW, identity},
		{FieldDW, identity},
		{FieldHS, millimetersToMeters},
	}
	for _, c := range conversions {
		vals, err := column(c.field)
		if err != nil {
			return nil, err
		}
		out.Columns[c.field] = convertColumn(vals, c.convert)
	}

	tsg := make([]float64, n)
	for i := range tsg {
		tsg[i] = FreezingK
	}
	out.Columns[FieldTSG] = tsg

	// ISWR is preferred; stations without a pyranometer facing up still report
	// the reflected component.
	out.Radiation = FieldISWR
	rad, err := column(FieldISWR)
	if err != nil {
		var rerr error
		rad, rerr = column(FieldRSWR)
		if rerr != nil {
			return nil, err
		}
		out.Radiation = FieldRSWR
	}
	out.Columns[FieldISWR] = convertColumn(rad, clampRadiation)

	return out, nil
}

func convertColumn(vals []*float64, convert func(float64) float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = NoData
			continue
		}
		out[i] = convert(*v)
	}
	return out
}

func celsiusToKelvin(v float64) float64 { return v + FreezingK }

func percentToFraction(v float64) float64 { return v / 100.0 }

func millimetersToMeters(v float64) float64 { return v / 1000.0 }

func identity(v float64) float64 { return v }

// clampRadiation zeroes small negative readings and rejects large ones.
func clampRadiation(v float64) float64 {
	switch {
	case v <= radiationFaultThreshold:
		return NoData
	case v < 0:
		return 0
	default:
		return v
	}
}
