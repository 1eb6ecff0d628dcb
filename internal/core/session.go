package core

import (
	"strings"
	"sync"
)

// InputFile is one source spreadsheet and the name its output is saved under.
// Overridden marks a name set by the operator; other names follow the rule's
// template.
type InputFile struct {
	Path       string `json:"path"`
	OutputName string `json:"output_name"`
	Overridden bool   `json:"overridden,omitempty"`
}

// Plan is an immutable snapshot of everything one conversion run consumes.
type Plan struct {
	Inputs     []InputFile
	Rule       Rule
	OutputMap  OutputMap
	ValueNames map[string]string
}

// Session holds the editable conversion state between runs: the input
// files, the current column set, the rule, and per-file value-column names.
//
// Every edit clears the confirmation flag; Snapshot refuses to produce a
// Plan until the operator confirms again.
type Session struct {
	mu         sync.Mutex
	inputs     []InputFile
	columns    []string
	rule       Rule
	valueNames map[string]string
	confirmed  bool
}

// NewSession starts a session with rule, reconciling its output map.
func NewSession(rule Rule) *Session {
	rule = rule.Clone()
	rule.GeneralOutputMap = ReconcileOutputMap(rule.GeneralOutputMap, rule)
	return &Session{
		rule:       rule,
		valueNames: make(map[string]string),
	}
}

// AddInput registers a source file. The first file added fixes the session's
// column set; later files are only checked at batch time.
func (s *Session) AddInput(path string, columns []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, in := range s.inputs {
		if in.Path == path {
			return
		}
	}
	if len(s.inputs) == 0 {
		s.columns = normalizeAll(columns)
	}
	s.inputs = append(s.inputs, InputFile{
		Path:       path,
		OutputName: ResolveOutputName(s.rule.NameTemplate(), path),
	})
	base := BaseName(path)
	if _, ok := s.valueNames[base]; !ok {
		s.valueNames[base] = base
	}
	s.confirmed = false
}

// RemoveInput drops a source file. Removing the last file clears the
// column set.
func (s *Session) RemoveInput(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, in := range s.inputs {
		if in.Path == path {
			s.inputs = append(s.inputs[:i:i], s.inputs[i+1:]...)
			if !s.hasBase(BaseName(path)) {
				delete(s.valueNames, BaseName(path))
			}
			break
		}
	}
	if len(s.inputs) == 0 {
		s.columns = nil
	}
	s.confirmed = false
}

// hasBase reports whether any input has the base name base. Callers hold s.mu.
func (s *Session) hasBase(base string) bool {
	for _, in := range s.inputs {
		if BaseName(in.Path) == base {
			return true
		}
	}
	return false
}

// SetOutputName overrides the output file name for path. Returns false if
// path is not an input of the session.
func (s *Session) SetOutputName(path, name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for i := range s.inputs {
		if s.inputs[i].Path == path {
			s.inputs[i].OutputName = EnsureXLSXExt(name)
			s.inputs[i].Overridden = true
			s.confirmed = false
			return true
		}
	}
	return false
}

// UpdateRule edits the current rule and reconciles its output map.
func (s *Session) UpdateRule(edit func(r *Rule)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.rule.Clone()
	edit(&r)
	r.GeneralOutputMap = ReconcileOutputMap(r.GeneralOutputMap, r)
	s.rule = r
	s.renameInputs()
	s.confirmed = false
}

// ApplyRule replaces the current rule with a loaded one. The rule must fit
// the session's column set; on mismatch the session is left untouched and a
// *RuleMismatchError is returned. Value names reset to file base names.
func (s *Session) ApplyRule(rule Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.inputs) == 0 {
		return configErrorf("no input files: add a file before loading a rule")
	}
	if err := ValidateRuleColumns(rule, s.columns); err != nil {
		return err
	}

	r := rule.Clone()
	r.GeneralOutputMap = ReconcileOutputMap(r.GeneralOutputMap, r)
	s.rule = r
	s.renameInputs()
	s.valueNames = make(map[string]string, len(s.inputs))
	for _, in := range s.inputs {
		base := BaseName(in.Path)
		s.valueNames[base] = base
	}
	s.confirmed = false
	return nil
}

// renameInputs re-derives every output name the operator has not overridden
// from the current template. Callers hold s.mu.
func (s *Session) renameInputs() {
	tmpl := s.rule.NameTemplate()
	for i := range s.inputs {
		if !s.inputs[i].Overridden {
			s.inputs[i].OutputName = ResolveOutputName(tmpl, s.inputs[i].Path)
		}
	}
}

// SetOutputMap replaces the output field layout, then reconciles it.
func (s *Session) SetOutputMap(m OutputMap) {
	s.UpdateRule(func(r *Rule) { r.GeneralOutputMap = m.Clone() })
}

// SetValueName sets the header of the value column for the file whose base
// name is base.
func (s *Session) SetValueName(base, header string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.valueNames[base] = strings.TrimSpace(header)
	s.confirmed = false
}

// Confirm marks the current configuration as reviewed by the operator.
func (s *Session) Confirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmed = true
}

// Confirmed reports whether the configuration is confirmed.
func (s *Session) Confirmed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmed
}

// Rule returns a copy of the current rule.
func (s *Session) Rule() Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rule.Clone()
}

// Columns returns the session's column set.
func (s *Session) Columns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.columns...)
}

// Inputs returns the registered input files.
func (s *Session) Inputs() []InputFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]InputFile(nil), s.inputs...)
}

// Snapshot returns the Plan for a conversion run.
func (s *Session) Snapshot() (Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.inputs) == 0 {
		return Plan{}, configErrorf("no input files")
	}
	if !s.confirmed {
		return Plan{}, configErrorf("output configuration not confirmed")
	}
	if err := checkRuleComplete(s.rule); err != nil {
		return Plan{}, err
	}

	names := make(map[string]string, len(s.valueNames))
	for k, v := range s.valueNames {
		names[k] = v
	}
	return Plan{
		Inputs:     append([]InputFile(nil), s.inputs...),
		Rule:       s.rule.Clone(),
		OutputMap:  s.rule.GeneralOutputMap.Clone(),
		ValueNames: names,
	}, nil
}

// checkRuleComplete verifies the rule names an index column, at least one
// selected column and a non-empty output map.
func checkRuleComplete(r Rule) error {
	if NormalizeColumnName(r.IndexColumn) == "" {
		return configErrorf("no index column selected")
	}
	if len(r.SelectedColumns) == 0 {
		return configErrorf("no columns selected")
	}
	if len(r.GeneralOutputMap) == 0 {
		return configErrorf("output map is empty")
	}
	return nil
}

// CheckRuleComplete is the exported form of the completeness check used
// before saving or running a rule.
func CheckRuleComplete(r Rule) error {
	return checkRuleComplete(r)
}

func normalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeColumnName(n)
	}
	return out
}
