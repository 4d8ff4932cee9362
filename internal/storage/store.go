// Package storage persists finished runs on disk: one directory per run
// holding metadata.json, a per-kilobot trajectory table and a light table.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	kilobotsFile = "kilobots.csv"
	lightFile    = "light.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Light     string             `json:"light"`
	Behavior  string             `json:"behavior"`
	Policy    string             `json:"policy"`
	Kilobots  int                `json:"kilobots"`
	Steps     int                `json:"steps"`
	Metrics   map[string]float64 `json:"metrics"`
	Config    *config.Config     `json:"config,omitempty"`
}

// Save writes the run and returns its id.
func (s *Store) Save(cfg *config.Config, result *dynamo.Result) (string, error) {
	if cfg == nil || result == nil {
		return "", fmt.Errorf("%w: nothing to save", dynamo.ErrInvalidConfig)
	}

	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	policy := cfg.Policy.Type
	if policy == "" {
		policy = "none"
	}
	meta := RunMetadata{
		ID:        runID,
		Name:      cfg.Name,
		Timestamp: time.Now().UTC(),
		Seed:      cfg.Seed,
		Dt:        cfg.Dt,
		Duration:  cfg.Duration,
		Light:     cfg.Light.Type,
		Behavior:  cfg.Kilobots.Behavior,
		Policy:    policy,
		Kilobots:  kilobotCount(result),
		Steps:     result.StepsTaken,
		Metrics:   result.Metrics,
		Config:    cfg,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, kilobotsFile), func(w *csv.Writer) error {
		return writeKilobots(w, result.Snapshots)
	}); err != nil {
		return "", err
	}
	if err := writeCSV(filepath.Join(runDir, lightFile), func(w *csv.Writer) error {
		return writeLight(w, result.Snapshots)
	}); err != nil {
		return "", err
	}

	return runID, nil
}

// List returns saved runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStates rebuilds the run's snapshots from its tables. Colors are not
// stored and come back zero.
func (s *Store) LoadStates(runID string) ([]dynamo.Snapshot, error) {
	runDir := filepath.Join(s.baseDir, runID)

	lightRows, err := readCSV(filepath.Join(runDir, lightFile))
	if err != nil {
		return nil, err
	}

	snaps := make([]dynamo.Snapshot, 0, len(lightRows))
	index := make(map[int]int, len(lightRows))
	for _, rec := range lightRows {
		snap, err := parseLightRow(rec)
		if err != nil {
			return nil, err
		}
		index[snap.Step] = len(snaps)
		snaps = append(snaps, snap)
	}

	kbRows, err := readCSV(filepath.Join(runDir, kilobotsFile))
	if err != nil {
		return nil, err
	}
	for _, rec := range kbRows {
		step, ks, err := parseKilobotRow(rec)
		if err != nil {
			return nil, err
		}
		i, ok := index[step]
		if !ok {
			continue
		}
		snaps[i].Kilobots = append(snaps[i].Kilobots, ks)
	}

	return snaps, nil
}

func (s *Store) Delete(runID string) error {
	runDir := filepath.Join(s.baseDir, runID)
	if _, err := os.Stat(filepath.Join(runDir, metadataFile)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	return os.RemoveAll(runDir)
}

func kilobotCount(result *dynamo.Result) int {
	if len(result.Snapshots) == 0 {
		return 0
	}
	return len(result.Snapshots[0].Kilobots)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, fill func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := fill(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	return r.ReadAll()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func writeKilobots(w *csv.Writer, snaps []dynamo.Snapshot) error {
	header := []string{"step", "time", "id", "x", "y", "theta", "ambient", "left", "right"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, snap := range snaps {
		for id, k := range snap.Kilobots {
			row := []string{
				strconv.Itoa(snap.Step),
				formatFloat(snap.Time),
				strconv.Itoa(id),
				formatFloat(k.Pose.X),
				formatFloat(k.Pose.Y),
				formatFloat(k.Pose.Theta),
				formatFloat(k.Ambient),
				strconv.Itoa(int(k.Left)),
				strconv.Itoa(int(k.Right)),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}

// The light table uses variable-width rows: step, time, target_x, target_y,
// has_target, the state length, the state, then the action.
func writeLight(w *csv.Writer, snaps []dynamo.Snapshot) error {
	header := []string{"step", "time", "target_x", "target_y", "has_target", "state_dim", "state_and_action"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, snap := range snaps {
		row := []string{
			strconv.Itoa(snap.Step),
			formatFloat(snap.Time),
			formatFloat(snap.Target[0]),
			formatFloat(snap.Target[1]),
			strconv.FormatBool(snap.HasTarget),
			strconv.Itoa(len(snap.Light)),
		}
		for _, v := range snap.Light {
			row = append(row, formatFloat(v))
		}
		for _, v := range snap.Action {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func parseLightRow(rec []string) (dynamo.Snapshot, error) {
	var snap dynamo.Snapshot
	if len(rec) < 6 {
		return snap, fmt.Errorf("light row: want at least 6 fields, got %d", len(rec))
	}

	var err error
	if snap.Step, err = strconv.Atoi(rec[0]); err != nil {
		return snap, fmt.Errorf("light row step: %w", err)
	}
	fs, err := parseFloats(rec[1:4])
	if err != nil {
		return snap, fmt.Errorf("light row: %w", err)
	}
	snap.Time, snap.Target[0], snap.Target[1] = fs[0], fs[1], fs[2]
	if snap.HasTarget, err = strconv.ParseBool(rec[4]); err != nil {
		return snap, fmt.Errorf("light row has_target: %w", err)
	}
	dim, err := strconv.Atoi(rec[5])
	if err != nil || dim < 0 || 6+dim > len(rec) {
		return snap, fmt.Errorf("light row: bad state_dim %q", rec[5])
	}

	rest, err := parseFloats(rec[6:])
	if err != nil {
		return snap, fmt.Errorf("light row: %w", err)
	}
	snap.Light = dynamo.State(rest[:dim])
	if len(rest) > dim {
		snap.Action = dynamo.Action(rest[dim:])
	}
	return snap, nil
}

func parseKilobotRow(rec []string) (int, dynamo.KilobotState, error) {
	var ks dynamo.KilobotState
	if len(rec) != 9 {
		return 0, ks, fmt.Errorf("kilobot row: want 9 fields, got %d", len(rec))
	}
	step, err := strconv.Atoi(rec[0])
	if err != nil {
		return 0, ks, fmt.Errorf("kilobot row step: %w", err)
	}
	fs, err := parseFloats(rec[3:7])
	if err != nil {
		return 0, ks, fmt.Errorf("kilobot row: %w", err)
	}
	ks.Pose = dynamo.Pose{X: fs[0], Y: fs[1], Theta: fs[2]}
	ks.Ambient = fs[3]

	left, err := strconv.ParseUint(rec[7], 10, 8)
	if err != nil {
		return 0, ks, fmt.Errorf("kilobot row left: %w", err)
	}
	right, err := strconv.ParseUint(rec[8], 10, 8)
	if err != nil {
		return 0, ks, fmt.Errorf("kilobot row right: %w", err)
	}
	ks.Left, ks.Right = uint8(left), uint8(right)
	return step, ks, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
