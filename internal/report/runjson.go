package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/bogflow/internal/bog"
)

// FileName is the name of the report inside a run's logs directory.
const FileName = "run.json"

// Status values of a run.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Unsuccessful lists services that failed or never ran.
type Unsuccessful struct {
	Failed []string `json:"failed,omitempty"`
	NotRun []string `json:"not_run,omitempty"`
}

// RunData is the content of run.json.
type RunData struct {
	ID             string         `json:"id"`
	LogsPath       string         `json:"logs_path"`
	Completed      bool           `json:"completed"`
	Status         string         `json:"status"`
	Chain          []string       `json:"chain"`
	SubmissionHost string         `json:"submission_host"`
	SubmissionDir  string         `json:"submission_dir"`
	SubmissionCmd  []string       `json:"submission_cmd"`
	Inputs         map[string]any `json:"inputs"`
	Results        map[string]any `json:"results,omitempty"`
	Unsuccessful   *Unsuccessful  `json:"unsuccessful,omitempty"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
}

// NewRunData describes a run that is about to start.
func NewRunData(id UID, logsPath string, chain []string, inputs bog.Bag, argv []string) *RunData {
	host, _ := os.Hostname()
	dir, _ := os.Getwd()
	return &RunData{
		ID:             id.String(),
		LogsPath:       logsPath,
		Status:         StatusRunning,
		Chain:          chain,
		SubmissionHost: host,
		SubmissionDir:  dir,
		SubmissionCmd:  argv,
		Inputs:         Serializable(inputs),
		StartedAt:      id.Timestamp,
	}
}

// Complete records the outcome of the run. A nil runErr marks it succeeded.
func (d *RunData) Complete(results bog.Bag, unsuccessful Unsuccessful, runErr error) {
	now := time.Now().UTC()
	d.Completed = true
	d.CompletedAt = &now
	d.Results = Serializable(results)
	if len(unsuccessful.Failed) > 0 || len(unsuccessful.NotRun) > 0 {
		d.Unsuccessful = &unsuccessful
	}
	d.Status = StatusSucceeded
	if runErr != nil {
		d.Status = StatusFailed
		d.Error = runErr.Error()
	}
}

// Path returns where run.json lives for this run.
func (d *RunData) Path() string {
	return filepath.Join(d.LogsPath, FileName)
}

// Write replaces run.json atomically.
func (d *RunData) Write() error {
	if err := os.MkdirAll(d.LogsPath, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run data: %w", err)
	}

	tmp, err := os.CreateTemp(d.LogsPath, "."+FileName+"-*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.Path()); err != nil {
		return fmt.Errorf("replace %s: %w", d.Path(), err)
	}
	return nil
}

// Load reads a run.json file.
func Load(path string) (*RunData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d RunData
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &d, nil
}

// Serializable converts a bag into a JSON-friendly map. Values JSON cannot
// represent are replaced by their fmt representation, and rename references
// by their "@name" form.
func Serializable(b bog.Bag) map[string]any {
	out := make(map[string]any, b.Len())
	for k, v := range b.All() {
		out[k] = serializable(v)
	}
	return out
}

func serializable(v any) any {
	switch v := v.(type) {
	case bog.Ref:
		return v.String()
	case bog.Bag:
		return Serializable(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = serializable(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = serializable(e)
		}
		return out
	}
	if _, err := json.Marshal(v); err != nil {
		return fmt.Sprint(v)
	}
	return v
}
