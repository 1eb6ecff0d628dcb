package core

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// ConvertTimeout bounds a single HTTP-initiated conversion.
var ConvertTimeout = 2 * time.Minute

// TableReader loads the first sheet of a spreadsheet file as a Table.
// Failures are reported as *ReadError.
type TableReader interface {
	Read(path string) (*Table, error)
}

// TableWriter saves a Table as an xlsx workbook at path, returning the final
// path written. Failures are reported as *WriteError.
type TableWriter interface {
	Write(t *Table, path string) (string, error)
	WriteTo(t *Table, w io.Writer) error
}

// RunRecorder persists batch results. It is optional.
type RunRecorder interface {
	RecordRun(ctx context.Context, result BatchResult) error
}

// Service runs conversions. It is stateless between calls; all inputs come
// from the Plan.
type Service struct {
	reader   TableReader
	writer   TableWriter
	recorder RunRecorder
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder records every batch result.
func WithRecorder(r RunRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger used for batch progress.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service reading and writing through r and w.
func NewService(r TableReader, w TableWriter, opts ...Option) *Service {
	s := &Service{
		reader: r,
		writer: w,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reader returns the table reader used by the service.
func (s *Service) Reader() TableReader {
	return s.reader
}

// Writer returns the table writer used by the service.
func (s *Service) Writer() TableWriter {
	return s.writer
}

// ConvertTable reshapes table with rule and projects it through the rule's
// output map. metricName is the base name of the file the table came from.
func ConvertTable(table *Table, rule Rule, metricName string, valueNames map[string]string) (*Table, error) {
	long, err := Reshape(table, rule, metricName)
	if err != nil {
		return nil, err
	}
	outputMap := ReconcileOutputMap(rule.GeneralOutputMap, rule)
	return Project(long, rule, metricName, outputMap, valueNames)
}

// ConvertFile converts the first input of plan and writes it to outputDir
// under the rule's template name. Per-file output-name overrides are not
// applied in single-file mode.
func (s *Service) ConvertFile(plan Plan, outputDir string) (string, error) {
	if len(plan.Inputs) == 0 {
		return "", configErrorf("no input files")
	}
	in := plan.Inputs[0]

	table, err := s.reader.Read(in.Path)
	if err != nil {
		return "", err
	}
	out, err := s.convert(table, plan, in.Path)
	if err != nil {
		return "", err
	}

	name := ResolveOutputName(plan.Rule.NameTemplate(), in.Path)
	return s.writer.Write(out, joinOutput(outputDir, name))
}

func (s *Service) convert(table *Table, plan Plan, path string) (*Table, error) {
	metric := BaseName(path)
	long, err := Reshape(table, plan.Rule, metric)
	if err != nil {
		return nil, err
	}
	return Project(long, plan.Rule, metric, plan.OutputMap, plan.ValueNames)
}
