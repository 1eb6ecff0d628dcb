package core

// batch.go runs a Plan over every input file.
//
// A batch has two phases:
//  1. Pre-check: every file is read and its column set compared with the
//     first file. Any failure here aborts the batch before anything is
//     written.
//  2. Write loop: each file is converted and written independently. A
//     failure is recorded on that file's result and the loop moves on.

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// FileResult is the outcome of one file in a batch.
type FileResult struct {
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
	Rows   int    `json:"rows"`
	Error  string `json:"error,omitempty"`

	Err error `json:"-"`
}

// OK reports whether the file was written.
func (f FileResult) OK() bool {
	return f.Err == nil && f.Error == ""
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	RunID     uuid.UUID     `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Files     []FileResult  `json:"files"`

	// Error is set when the pre-check aborted the batch.
	Error string `json:"error,omitempty"`
}

// Succeeded returns the number of files written.
func (r BatchResult) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if f.OK() {
			n++
		}
	}
	return n
}

// Failed returns the number of files that failed in the write loop.
func (r BatchResult) Failed() int {
	return len(r.Files) - r.Succeeded()
}

// OK reports whether the batch ran and every file was written.
func (r BatchResult) OK() bool {
	return r.Error == "" && r.Failed() == 0
}

// RunBatch converts every input of plan into outputDir.
//
// A non-nil error means the batch was aborted before the write loop and no
// file was written. Per-file failures are reported in the result only.
// The result is recorded through the RunRecorder either way.
func (s *Service) RunBatch(ctx context.Context, plan Plan, outputDir string) (BatchResult, error) {
	result := BatchResult{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}
	log := s.logger.With("run_id", result.RunID.String())
	log.Info("batch started", "files", len(plan.Inputs), "output_dir", outputDir)

	if err := s.precheck(plan); err != nil {
		result.Error = err.Error()
		result.Duration = time.Since(result.StartedAt)
		log.Error("batch aborted", "error", err)
		s.record(ctx, result)
		return result, err
	}

	for _, in := range plan.Inputs {
		fr := s.runFile(plan, in, outputDir)
		if fr.Err != nil {
			log.Error("file failed", "input", in.Path, "error", fr.Err)
		} else {
			log.Info("file converted", "input", in.Path, "output", fr.Output, "rows", fr.Rows)
		}
		result.Files = append(result.Files, fr)
	}

	result.Duration = time.Since(result.StartedAt)
	log.Info("batch finished",
		"succeeded", result.Succeeded(),
		"failed", result.Failed(),
		"duration", result.Duration,
	)
	s.record(ctx, result)
	return result, nil
}

// precheck validates the plan and requires every file to be readable with
// the same column set as the first.
func (s *Service) precheck(plan Plan) error {
	if len(plan.Inputs) == 0 {
		return configErrorf("no input files")
	}
	if err := checkRuleComplete(planRule(plan)); err != nil {
		return err
	}

	var first []string
	for i, in := range plan.Inputs {
		t, err := s.reader.Read(in.Path)
		if err != nil {
			return asReadError(in.Path, err)
		}
		cols := t.ColumnNames()
		if i == 0 {
			first = cols
			continue
		}
		if !SameColumnSet(first, cols) {
			return newHeaderMismatch(in.Path, first, cols)
		}
	}
	return nil
}

func (s *Service) runFile(plan Plan, in InputFile, outputDir string) FileResult {
	fr := FileResult{Input: in.Path}
	fail := func(err error) FileResult {
		fr.Err = err
		fr.Error = err.Error()
		return fr
	}

	table, err := s.reader.Read(in.Path)
	if err != nil {
		return fail(asReadError(in.Path, err))
	}
	out, err := s.convert(table, plan, in.Path)
	if err != nil {
		return fail(err)
	}

	name := in.OutputName
	if name == "" {
		name = ResolveOutputName(plan.Rule.NameTemplate(), in.Path)
	}
	written, err := s.writer.Write(out, joinOutput(outputDir, EnsureXLSXExt(name)))
	if err != nil {
		return fail(err)
	}
	fr.Output = written
	fr.Rows = out.NumRows()
	return fr
}

func (s *Service) record(ctx context.Context, result BatchResult) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordRun(ctx, result); err != nil {
		s.logger.Warn("failed to record batch run", "run_id", result.RunID.String(), "error", err)
	}
}

// planRule returns the rule with the plan's output map applied.
func planRule(plan Plan) Rule {
	r := plan.Rule
	r.GeneralOutputMap = plan.OutputMap
	return r
}

// asReadError wraps err as a *ReadError unless it already is one.
func asReadError(path string, err error) error {
	var re *ReadError
	if errors.As(err, &re) {
		return err
	}
	return &ReadError{Path: path, Err: err}
}

func joinOutput(dir, name string) string {
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
