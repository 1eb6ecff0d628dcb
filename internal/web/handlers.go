package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/JonMunkholm/widelong/internal/history"
	"github.com/JonMunkholm/widelong/internal/logging"
	"github.com/JonMunkholm/widelong/internal/rules"
	"github.com/JonMunkholm/widelong/internal/web/templates"
	"github.com/google/uuid"
)

// InspectResponse describes an uploaded spreadsheet.
type InspectResponse struct {
	File    string     `json:"file"`
	Columns []string   `json:"columns"`
	Rows    int        `json:"rows"`
	Sample  [][]string `json:"sample"`
}

// ConvertResponse is the JSON preview of a conversion.
type ConvertResponse struct {
	RunID   string     `json:"run_id"`
	File    string     `json:"file"`
	Output  string     `json:"output"`
	Columns []string   `json:"columns"`
	Rows    int        `json:"rows"`
	Data    [][]string `json:"data"`
}

// RuleCheckRequest asks whether a rule fits a column set.
type RuleCheckRequest struct {
	Rule    json.RawMessage `json:"rule"`
	Columns []string        `json:"columns"`
}

// RuleCheckResponse reports the result of a rule check.
type RuleCheckResponse struct {
	OK             bool     `json:"ok"`
	MissingIndex   bool     `json:"missing_index,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Incomplete     string   `json:"incomplete,omitempty"`
}

// handleIndex renders the landing page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	def := core.DefaultRule()
	def.OutputNameTemplate = s.cfg.Convert.NameTemplate
	def.ValueColumnAlias = s.cfg.Convert.ValueAlias
	def.DataPrefix = s.cfg.Convert.DataPrefix
	def.GeneralOutputMap = core.DefaultOutputMap(def)
	ruleJSON, err := rules.Encode(def, rules.FormatJSON)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	data := templates.IndexData{
		DefaultRule:    string(ruleJSON),
		HistoryEnabled: s.history != nil,
		MaxFileSize:    s.cfg.Convert.MaxFileSize,
	}
	if s.history != nil {
		runs, err := s.history.Recent(r.Context(), history.DefaultRecentLimit)
		if err != nil {
			// The form still works without history.
			logging.FromContext(r.Context()).Warn("failed to load run history", "error", err)
		}
		for _, run := range runs {
			data.Runs = append(data.Runs, templates.RunRow(run))
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(data).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// handleHealth reports liveness and the conversion queue state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "ok",
		"conversions": s.limiter.Status(),
		"history":     s.history != nil,
	})
}

// handleInspect returns the header and row count of an uploaded file.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	table, err := s.decoder.ReadBytes(up.Name, up.Data)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, InspectResponse{
		File:    up.Name,
		Columns: table.ColumnNames(),
		Rows:    table.NumRows(),
		Sample:  cellStrings(table, parseIntParam(r, "sample", 10)),
	})
}

// handleConvert converts one uploaded file. The result is an xlsx attachment
// named by the rule's template, or a JSON preview with ?format=json.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.convertTimeout())
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	defer s.limiter.Release()

	up, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	rule, err := decodeRule([]byte(r.FormValue("rule")))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	result := core.BatchResult{RunID: uuid.New(), StartedAt: time.Now().UTC()}
	log := logging.WithFields(ctx, "run_id", result.RunID.String(), "file", up.Name)

	out, outName, err := s.convertUpload(up, rule, r.FormValue("value_name"))
	result.Duration = time.Since(result.StartedAt)
	fr := core.FileResult{Input: up.Name, Output: outName}
	if err != nil {
		fr.Err, fr.Error = err, err.Error()
	} else {
		fr.Rows = out.NumRows()
	}
	result.Files = []core.FileResult{fr}
	s.record(ctx, result)

	if err != nil {
		log.Error("conversion failed", "error", err)
		respondError(w, r, err, statusFor(err))
		return
	}
	if err := ctx.Err(); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	log.Info("conversion finished", "rows", fr.Rows, "output", outName)

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, ConvertResponse{
			RunID:   result.RunID.String(),
			File:    up.Name,
			Output:  outName,
			Columns: out.ColumnNames(),
			Rows:    out.NumRows(),
			Data:    cellStrings(out, parseIntParam(r, "limit", previewLimit)),
		})
		return
	}

	var buf bytes.Buffer
	if err := s.service.Writer().WriteTo(out, &buf); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment(outName))
	w.Header().Set("X-Run-ID", result.RunID.String())
	if _, err := io.Copy(w, &buf); err != nil {
		log.Warn("failed to send workbook", "error", err)
	}
}

// convertUpload decodes, validates and converts one upload. It returns the
// converted table and its output file name.
func (s *Server) convertUpload(up upload, rule core.Rule, valueName string) (*core.Table, string, error) {
	outName := core.ResolveOutputName(rule.NameTemplate(), up.Name)

	table, err := s.decoder.ReadBytes(up.Name, up.Data)
	if err != nil {
		return nil, outName, err
	}
	if err := rules.Validate(rule, table.ColumnNames()); err != nil {
		return nil, outName, err
	}

	rule.GeneralOutputMap = core.ReconcileOutputMap(rule.GeneralOutputMap, rule)
	if err := core.CheckRuleComplete(rule); err != nil {
		return nil, outName, err
	}

	metric := core.BaseName(up.Name)
	var valueNames map[string]string
	if valueName != "" {
		valueNames = map[string]string{metric: valueName}
	}
	out, err := core.ConvertTable(table, rule, metric, valueNames)
	if err != nil {
		return nil, outName, err
	}
	return out, outName, nil
}

// handleRulesCheck reports whether a rule fits a column set.
func (s *Server) handleRulesCheck(w http.ResponseWriter, r *http.Request) {
	var req RuleCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}
	rule, err := decodeRule(req.Rule)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := RuleCheckResponse{OK: true}
	var mismatch *core.RuleMismatchError
	if err := rules.Validate(rule, req.Columns); errors.As(err, &mismatch) {
		resp.OK = false
		resp.MissingIndex = mismatch.MissingIndex
		resp.MissingColumns = mismatch.MissingColumns
	}
	rule.GeneralOutputMap = core.ReconcileOutputMap(rule.GeneralOutputMap, rule)
	if err := core.CheckRuleComplete(rule); err != nil {
		resp.OK = false
		resp.Incomplete = err.Error()
	}
	writeJSON(w, resp)
}

// handleRulesReconcile returns the rule with its output map reconciled.
func (s *Server) handleRulesReconcile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), http.StatusBadRequest)
		return
	}
	rule, err := decodeRule(body)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	rule.GeneralOutputMap = core.ReconcileOutputMap(rule.GeneralOutputMap, rule)
	writeJSON(w, rule)
}

// handleHistory lists recent conversion runs.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, r, history.ErrDisabled, http.StatusNotFound)
		return
	}

	limit := parseIntParam(r, "limit", history.DefaultRecentLimit)
	runs, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, runs)
}

// record stores result when history is enabled. Failures are logged only.
func (s *Server) record(ctx context.Context, result core.BatchResult) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordRun(context.WithoutCancel(ctx), result); err != nil {
		logging.FromContext(ctx).Warn("failed to record conversion", "run_id", result.RunID.String(), "error", err)
	}
}

func (s *Server) convertTimeout() time.Duration {
	if s.cfg.Convert.Timeout > 0 {
		return s.cfg.Convert.Timeout
	}
	return core.ConvertTimeout
}

// decodeRule parses a JSON rule. Malformed input is a bad request.
func decodeRule(data []byte) (core.Rule, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return core.Rule{}, fmt.Errorf("%w: rule is required", errBadRequest)
	}
	rule, err := rules.Decode(data, rules.FormatJSON)
	if err != nil {
		var cfgErr *core.ConfigurationError
		if errors.As(err, &cfgErr) {
			return core.Rule{}, err
		}
		return core.Rule{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return rule, nil
}
