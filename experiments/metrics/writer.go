package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// AgentConfig identifies an agent taking part in an experiment. Spec is an option
// string understood by the agent package, e.g. "mcts:time=10ms,threads=4".
type AgentConfig struct {
	ID   int
	Spec string
}

type GameRecord struct {
	ID     int
	Agent1 int // AgentConfig.ID
	Agent2 int // AgentConfig.ID
	GameMetric
}

type MoveRecord struct {
	Game int // GameRecord.ID
	MoveMetric
}

// moveRow is the columnar layout of a MoveRecord.
type moveRow struct {
	RunID        string `parquet:"run_id,dict"`
	Game         int32  `parquet:"game"`
	Step         int32  `parquet:"step"`
	Player       int32  `parquet:"player"`
	Move         string `parquet:"move,dict"`
	Strategy     string `parquet:"strategy,dict"`
	Goroutines   int32  `parquet:"goroutines"`
	Cutoff       int32  `parquet:"cutoff"`
	DurationNs   int64  `parquet:"duration_ns"`
	Episodes     int32  `parquet:"episodes"`
	FullPlayouts int32  `parquet:"full_playouts"`
	Nodes        int32  `parquet:"nodes"`
	MaxDepth     int32  `parquet:"max_depth"`
	IsTreeReset  bool   `parquet:"is_tree_reset"`
	StopReason   string `parquet:"stop_reason,dict"`
}

type Writer struct {
	baseDir string
	runID   string
}

// NewWriter creates root/name/<timestamp>-<run id> for the output of one run.
func NewWriter(root, name string) (*Writer, error) {
	runID := uuid.NewString()
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(root, name, timestamp+"-"+runID[:8])
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
		runID:   runID,
	}, nil
}

func (w *Writer) Dir() string   { return w.baseDir }
func (w *Writer) RunID() string { return w.runID }

// createFile opens a CSV output file.
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

func (w *Writer) writeCSV(name string, header []string, rows [][]string) (err error) {
	path := filepath.Join(w.baseDir, name)
	f, err := createFile(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", name, closeErr)
		}
	}()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}
	return nil
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{strconv.Itoa(config.ID), config.Spec})
	}
	return w.writeCSV("agent_configs.csv", []string{"id", "spec"}, rows)
}

func (w *Writer) WriteGameRecords(records []GameRecord) error {
	header := []string{"id", "game", "agent1", "agent2", "starting_player", "winner", "moves", "start_time", "end_time", "duration"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			record.Game,
			strconv.Itoa(record.Agent1),
			strconv.Itoa(record.Agent2),
			strconv.Itoa(record.StartingPlayer),
			strconv.Itoa(record.Winner),
			strconv.Itoa(record.TotalMoves),
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
		})
	}
	return w.writeCSV("game_records.csv", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"game", "step", "player", "move", "strategy", "goroutines", "cutoff", "duration", "episodes", "full_playouts", "nodes", "max_depth", "is_tree_reset", "stop_reason"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Game),
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Player),
			record.Move,
			record.Strategy,
			strconv.Itoa(record.Goroutines),
			strconv.Itoa(record.Cutoff),
			record.Duration.String(),
			strconv.Itoa(record.Episodes),
			strconv.Itoa(record.FullPlayouts),
			strconv.Itoa(record.Nodes),
			strconv.Itoa(record.MaxDepth),
			strconv.FormatBool(record.IsTreeReset),
			record.StopReason,
		})
	}
	return w.writeCSV("move_records.csv", header, rows)
}

// WriteMoveRecordsParquet stores the move records next to the CSV for analysis
// tools that prefer a columnar file.
func (w *Writer) WriteMoveRecordsParquet(records []MoveRecord) error {
	rows := make([]moveRow, 0, len(records))
	for _, record := range records {
		rows = append(rows, moveRow{
			RunID:        w.runID,
			Game:         int32(record.Game),
			Step:         int32(record.Step),
			Player:       int32(record.Player),
			Move:         record.Move,
			Strategy:     record.Strategy,
			Goroutines:   int32(record.Goroutines),
			Cutoff:       int32(record.Cutoff),
			DurationNs:   record.Duration.Nanoseconds(),
			Episodes:     int32(record.Episodes),
			FullPlayouts: int32(record.FullPlayouts),
			Nodes:        int32(record.Nodes),
			MaxDepth:     int32(record.MaxDepth),
			IsTreeReset:  record.IsTreeReset,
			StopReason:   record.StopReason,
		})
	}

	// Write to a temp file and rename atomically.
	path := filepath.Join(w.baseDir, "move_records.parquet")
	tmpPath := path + ".tmp"
	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("run_id", w.runID),
	); err != nil {
		return fmt.Errorf("failed to write parquet move records: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename parquet move records: %w", err)
	}
	return nil
}

// ReadMoveRecordsParquet loads move records written by WriteMoveRecordsParquet.
func ReadMoveRecordsParquet(path string) ([]MoveRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	reader := parquet.NewGenericReader[moveRow](pf)
	defer reader.Close()

	rows := make([]moveRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read move records: %w", err)
	}

	records := make([]MoveRecord, 0, n)
	for _, row := range rows[:n] {
		records = append(records, MoveRecord{
			Game: int(row.Game),
			MoveMetric: MoveMetric{
				Step:   int(row.Step),
				Player: int(row.Player),
				Move:   row.Move,
				SearchMetric: SearchMetric{
					Strategy:     row.Strategy,
					Goroutines:   int(row.Goroutines),
					Cutoff:       int(row.Cutoff),
					Duration:     time.Duration(row.DurationNs),
					Episodes:     int(row.Episodes),
					FullPlayouts: int(row.FullPlayouts),
					Nodes:        int(row.Nodes),
					MaxDepth:     int(row.MaxDepth),
					IsTreeReset:  row.IsTreeReset,
					StopReason:   row.StopReason,
				},
			},
		})
	}
	return records, nil
}
