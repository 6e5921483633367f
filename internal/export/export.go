// Package export writes finished runs for downstream plotting tools.
// The format is a msgpack-encoded Run compressed with zstd.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"approach_sim/internal/analysis"
	"approach_sim/internal/sim"
)

// Run is one exported simulation run
type Run struct {
	ID                 string           `msgpack:"id"`
	Seed               int64            `msgpack:"seed"`
	ArrivalProbability float64          `msgpack:"arrival_probability"`
	Result             *sim.Result      `msgpack:"result"`
	Summary            analysis.Summary `msgpack:"summary"`
}

// Write encodes run to w
func Write(w io.Writer, run *Run) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(run); err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}

	return nil
}

// Read decodes a run written by Write
func Read(r io.Reader) (*Run, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var run Run
	if err := msgpack.NewDecoder(zr).Decode(&run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}

	return &run, nil
}

// WriteFile writes run to path, replacing any existing file
func WriteFile(path string, run *Run) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads a run from path
func ReadFile(path string) (*Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	return Read(f)
}
