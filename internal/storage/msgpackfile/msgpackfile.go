// Package msgpackfile stores each power output series as a MessagePack file.
package msgpackfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chrissnell/windfeed/internal/log"
	"github.com/chrissnell/windfeed/internal/storage"
)

// Record is the on-disk form of one output. NaN power marks invalid rows.
type Record struct {
	RunID      string      `msgpack:"run_id"`
	Kind       string      `msgpack:"kind"`
	Name       string      `msgpack:"name"`
	ComputedAt time.Time   `msgpack:"computed_at"`
	Index      []time.Time `msgpack:"index"`
	Power      []float64   `msgpack:"power_w"`
	Invalid    int         `msgpack:"invalid_rows"`
	Clamped    int         `msgpack:"clamped_rows"`
}

// Storage writes outputs below a directory
type Storage struct {
	dir string
}

// New creates the output directory if needed
func New(dir string) (*Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("msgpack output directory is not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create output directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// FileName returns the file an output is written to, relative to the storage directory
func FileName(out storage.Output) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == os.PathSeparator || r == ' ' {
			return '_'
		}
		return r
	}, out.Name)
	return fmt.Sprintf("%s-%s-%s.msgpack", out.Kind, name, out.RunID)
}

// StoreOutput encodes out and writes it atomically
func (s *Storage) StoreOutput(ctx context.Context, out storage.Output) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rec := Record{
		RunID:      out.RunID.String(),
		Kind:       out.Kind,
		Name:       out.Name,
		ComputedAt: out.ComputedAt,
		Index:      out.Series.Index,
		Power:      out.Series.Values,
		Invalid:    out.Series.Invalid,
		Clamped:    out.Series.Clamped,
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("msgpackfile: could not encode output: %w", err)
	}

	path := filepath.Join(s.dir, FileName(out))
	tmp, err := os.CreateTemp(s.dir, ".windfeed-*")
	if err != nil {
		return fmt.Errorf("msgpackfile: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("msgpackfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("msgpackfile: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("msgpackfile: %w", err)
	}

	log.Debugw("wrote power output", "path", path, "rows", len(rec.Power))
	return nil
}

// ReadFile decodes a file written by StoreOutput
func ReadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}
	return &rec, nil
}

// Health checks that the output directory is still writable
func (s *Storage) Health(ctx context.Context) error {
	f, err := os.CreateTemp(s.dir, ".health-*")
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	f.Close()
	return os.Remove(f.Name())
}

// Close is a no-op
func (s *Storage) Close() error {
	return nil
}
