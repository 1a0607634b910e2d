// Package series accumulates per-epoch trajectory snapshots and
// persists them as one JSON document per epoch, supporting resume from
// the latest epoch in a directory.
package series

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/san-kum/replisim/internal/state"
)

// Record is an immutable point-in-time copy of a trajectory state,
// decoupled from the mutable stepping buffers.
type Record struct {
	Time  int          `json:"time"`
	State state.Vector `json:"state"`
	Space *state.Field `json:"space,omitempty"`
	Mass  float64      `json:"mass"`
}

// TimeSeries holds the ordered samples of one epoch. Mode is shared
// across all records. Appended to during the epoch, written once at
// epoch end, never mutated after persistence.
type TimeSeries struct {
	Epoch   int        `json:"epoch"`
	Mode    state.Mode `json:"mode"`
	Samples []Record   `json:"samples"`
}

// Empty creates a time series for one epoch with no samples yet.
func Empty(epoch int, mode state.Mode) *TimeSeries {
	return &TimeSeries{
		Epoch:   epoch,
		Mode:    mode.Clone(),
		Samples: make([]Record, 0),
	}
}

// Add appends a deep copy of the snapshot, preserving insertion order.
func (ts *TimeSeries) Add(s *state.System) {
	ts.Samples = append(ts.Samples, Record{
		Time:  s.Time,
		State: s.State.Clone(),
		Space: s.Space.Clone(),
		Mass:  s.Mass,
	})
}

// Final reconstructs a mutable System from the last sample, seeding
// the next epoch of a resumed run.
func (ts *TimeSeries) Final() (*state.System, error) {
	if len(ts.Samples) == 0 {
		return nil, fmt.Errorf("series: epoch %d: %w", ts.Epoch, ErrEmpty)
	}
	rec := ts.Samples[len(ts.Samples)-1]
	return &state.System{
		Mode:  ts.Mode.Clone(),
		Time:  rec.Time,
		State: rec.State.Clone(),
		Space: rec.Space.Clone(),
		Mass:  rec.Mass,
	}, nil
}

// Save writes the series as {dir}/{epoch}.json (pretty-printed),
// creating the directory if needed. The write goes through a temp file
// and rename so a crash never leaves a truncated epoch document.
func (ts *TimeSeries) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("series: create dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.json", ts.Epoch))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("series: create %s: %w", tmp, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ts); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("series: serialize %s: %v: %w", path, err, ErrEncode)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("series: write %s: %w", path, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("series: rename %s: %w", path, err)
	}

	return nil
}

// Load reads a time series. If path names a document it is loaded
// directly; if it names a directory the numerically largest epoch
// document in it is loaded (resume from latest epoch).
func Load(path string) (*TimeSeries, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("series: stat %s: %w", path, err)
	}

	if info.IsDir() {
		latest, _, err := Latest(path)
		if err != nil {
			return nil, err
		}
		path = latest
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("series: read %s: %w", path, err)
	}

	var ts TimeSeries
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("series: decode %s: %v: %w", path, err, ErrDecode)
	}

	return &ts, nil
}

// Latest scans dir for epoch documents and returns the path and epoch
// number of the numerically largest one. Files whose names are not a
// decimal epoch are ignored.
func Latest(dir string) (string, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("series: read dir %s: %w", dir, err)
	}

	best := -1
	bestName := ""
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		epoch, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil || epoch < 0 {
			continue
		}
		if epoch > best {
			best = epoch
			bestName = name
		}
	}

	if best < 0 {
		return "", 0, fmt.Errorf("series: %s: %w", dir, ErrNoEpochs)
	}

	return filepath.Join(dir, bestName), best, nil
}
