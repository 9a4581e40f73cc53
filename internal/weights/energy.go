package weights

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"

	"featmill/internal/faults"
	"featmill/internal/featio"
	"featmill/internal/pathspec"
)

// Spectrum selects how per-frame energy is read from a feature stream.
type Spectrum string

const (
	// SpectrumFWLSpec averages a frequency-warped log spectrum across bands.
	SpectrumFWLSpec Spectrum = "fwlspec"
	// SpectrumMCep and SpectrumFWCep take the leading cepstral coefficient.
	SpectrumMCep  Spectrum = "mcep"
	SpectrumFWCep Spectrum = "fwcep"
)

// DefaultThresholdDB is the energy floor relative to the utterance peak.
const DefaultThresholdDB = -32.0

func ParseSpectrum(raw string) (Spectrum, error) {
	switch s := Spectrum(strings.ToLower(strings.TrimSpace(raw))); s {
	case SpectrumFWLSpec, SpectrumMCep, SpectrumFWCep:
		return s, nil
	case "":
		return SpectrumFWLSpec, nil
	default:
		return "", faults.Wrap(faults.ErrConfiguration, "weights", "parse spectrum",
			fmt.Sprintf("unknown spectrum type %q", raw), nil)
	}
}

// Energy thresholds peak-relative frame energy.
type Energy struct {
	Input       pathspec.Descriptor
	Spectrum    Spectrum
	ThresholdDB float64
}

func (e Energy) Name() string { return "energy" }

// Weights reads the utterance spectrum and returns 1 for frames within
// ThresholdDB of the loudest frame, 0 otherwise.
func (e Energy) Weights(id string) ([]float32, error) {
	m, err := featio.ReadMatrix(e.Input.Resolve(id), e.Input.Cols())
	if err != nil {
		return nil, err
	}
	energy, err := e.frameEnergy(m)
	if err != nil {
		return nil, err
	}
	return thresholdEnergy(energy, e.ThresholdDB), nil
}

// frameEnergy is 20*log10(exp(v)) per frame, with v the log-magnitude value
// chosen by Spectrum.
func (e Energy) frameEnergy(m featio.Matrix) ([]float64, error) {
	var v []float64
	switch e.Spectrum {
	case SpectrumFWLSpec, "":
		v = make([]float64, m.Rows)
		row := make([]float64, m.Cols)
		for i := range v {
			for j, x := range m.Row(i) {
				row[j] = float64(x)
			}
			v[i] = floats.Sum(row) / float64(m.Cols)
		}
	case SpectrumMCep, SpectrumFWCep:
		v = m.Column(0)
	default:
		return nil, faults.Wrap(faults.ErrConfiguration, "weights", "energy",
			fmt.Sprintf("unknown spectrum type %q", e.Spectrum), nil)
	}
	floats.Scale(20*math.Log10E, v)
	return v, nil
}

func thresholdEnergy(energy []float64, thresholdDB float64) []float32 {
	out := make([]float32, len(energy))
	if len(energy) == 0 {
		return out
	}
	floats.AddConst(-floats.Max(energy), energy)
	for i, db := range energy {
		if db >= thresholdDB {
			out[i] = 1
		}
	}
	return out
}
