package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/kilosim/internal/config"
	"github.com/san-kum/kilosim/internal/dynamo"
)

type ExportData struct {
	Name     string             `json:"name"`
	Light    string             `json:"light"`
	Behavior string             `json:"behavior"`
	Policy   string             `json:"policy"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Seed     int64              `json:"seed"`
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	Kilobots [][]ExportKilobot  `json:"kilobots"`
	Lights   [][]float64        `json:"lights"`
	Actions  [][]float64        `json:"actions"`
	Metrics  map[string]float64 `json:"metrics"`
}

type ExportKilobot struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Theta   float64 `json:"theta"`
	Ambient float64 `json:"ambient"`
	Left    uint8   `json:"left"`
	Right   uint8   `json:"right"`
	Color   string  `json:"color"`
}

func NewExportData(cfg *config.Config, result *dynamo.Result) ExportData {
	n := len(result.Snapshots)
	data := ExportData{
		Name:     cfg.Name,
		Light:    cfg.Light.Type,
		Behavior: cfg.Kilobots.Behavior,
		Policy:   cfg.Policy.Type,
		Dt:       cfg.Dt,
		Duration: cfg.Duration,
		Seed:     cfg.Seed,
		Steps:    result.StepsTaken,
		Times:    make([]float64, n),
		Kilobots: make([][]ExportKilobot, n),
		Lights:   make([][]float64, n),
		Actions:  make([][]float64, n),
		Metrics:  result.Metrics,
	}
	if data.Policy == "" {
		data.Policy = "none"
	}

	for i, snap := range result.Snapshots {
		data.Times[i] = snap.Time
		data.Lights[i] = snap.Light
		data.Actions[i] = snap.Action
		ks := make([]ExportKilobot, len(snap.Kilobots))
		for j, k := range snap.Kilobots {
			ks[j] = ExportKilobot{
				X:       k.Pose.X,
				Y:       k.Pose.Y,
				Theta:   k.Pose.Theta,
				Ambient: k.Ambient,
				Left:    k.Left,
				Right:   k.Right,
				Color:   k.Color.Hex(),
			}
		}
		data.Kilobots[i] = ks
	}
	return data
}

func WriteJSON(w io.Writer, cfg *config.Config, result *dynamo.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(cfg, result))
}

func ExportJSON(path string, cfg *config.Config, result *dynamo.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, cfg, result)
}

func ExportJSONStdout(cfg *config.Config, result *dynamo.Result) error {
	return WriteJSON(os.Stdout, cfg, result)
}
