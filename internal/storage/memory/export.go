package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// ReplayExport is the root JSON structure of an exported match
type ReplayExport struct {
	ExtensionVersion string  `json:"extensionVersion"`
	MatchName        string  `json:"matchName"`
	AgentName        string  `json:"agentName"`
	AgentIndex       int     `json:"agentIndex"`
	Team             string  `json:"team"`
	Tag              string  `json:"tag"`
	StartTime        string  `json:"startTime"`
	EndTick          uint64  `json:"endTick"`
	GameLength       float64 `json:"gameLength"`
	// Ticks: [tick, gameTime, deltaTime, phase, accepted, [bx, by, bz], carCount, action, [throttle, steer, boost, jump]]
	Ticks [][]any `json:"ticks"`
	// Actions: [tick, gameTime, kind, action, reason, error]
	Actions [][]any `json:"actions"`
	// Touches: [gameTime, playerIndex, playerName, team, [x, y, z]]
	Touches [][]any `json:"touches"`
	// Predictions: [tick, gameTime, [[t, x, y, z], ...]]
	Predictions [][]any `json:"predictions"`
}

// exportJSON writes the match data to a (gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	matchName := strings.ReplaceAll(b.match.Name, " ", "_")
	matchName = strings.ReplaceAll(matchName, ":", "_")
	timestamp := b.match.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", matchName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", matchName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	b.lastExportMeta.MatchName = export.MatchName
	b.lastExportMeta.AgentName = export.AgentName
	b.lastExportMeta.Tag = export.Tag
	b.lastExportMeta.GameLength = export.GameLength
	return nil
}

func (b *Backend) buildExport() ReplayExport {
	export := ReplayExport{
		ExtensionVersion: b.match.ExtensionVersion,
		MatchName:        b.match.Name,
		AgentName:        b.match.AgentName,
		AgentIndex:       b.match.AgentIndex,
		Team:             b.match.Team.String(),
		Tag:              b.match.Tag,
		StartTime:        b.match.StartTime.UTC().Format(time.RFC3339),
		Ticks:            make([][]any, 0, len(b.ticks)),
		Actions:          make([][]any, 0, len(b.actions)),
		Touches:          make([][]any, 0, len(b.touches)),
		Predictions:      make([][]any, 0, len(b.predictions)),
	}

	var first, last float64
	for i, t := range b.ticks {
		if i == 0 {
			first = t.GameTime
		}
		if t.GameTime > last {
			last = t.GameTime
		}
		if t.Tick > export.EndTick {
			export.EndTick = t.Tick
		}
		export.Ticks = append(export.Ticks, []any{
			t.Tick,
			t.GameTime,
			t.DeltaTime,
			t.Phase.String(),
			boolToInt(t.Accepted),
			[]float64{t.Ball.X, t.Ball.Y, t.Ball.Z},
			t.CarCount,
			t.Action,
			[]any{t.Controller.Throttle, t.Controller.Steer, boolToInt(t.Controller.Boost), boolToInt(t.Controller.Jump)},
		})
	}
	if last > first {
		export.GameLength = last - first
	}

	for _, e := range b.actions {
		export.Actions = append(export.Actions, []any{
			e.Tick,
			e.GameTime,
			string(e.Kind),
			e.Action,
			e.Reason,
			e.Error,
		})
	}

	for _, t := range b.touches {
		export.Touches = append(export.Touches, []any{
			t.Time,
			t.PlayerIndex,
			t.PlayerName,
			t.Team.String(),
			[]float64{t.Location.X, t.Location.Y, t.Location.Z},
		})
	}

	for _, p := range b.predictions {
		path := make([][]float64, 0, len(p.Slices))
		for _, s := range p.Slices {
			path = append(path, []float64{s.Time, s.Location.X, s.Location.Y, s.Location.Z})
		}
		export.Predictions = append(export.Predictions, []any{p.Tick, p.GameTime, path})
	}

	return export
}

func writeJSON(path string, data ReplayExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data ReplayExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
