package core

import "testing"

func TestResolveOutputName(t *testing.T) {
	tests := []struct {
		name     string
		template string
		input    string
		want     string
	}{
		{"default template", "", "/data/工资表.xlsx", "清洗_工资表.xlsx"},
		{"custom template", "{basename}_long", "a/b/sales.csv", "sales_long.xlsx"},
		{"extension kept", "out_{basename}.XLSX", "x.xlsx", "out_x.XLSX"},
		{"no placeholder", "fixed", "x.xlsx", "fixed.xlsx"},
		{"blank template", "   ", "y.xlsm", "清洗_y.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveOutputName(tt.template, tt.input); got != tt.want {
				t.Errorf("ResolveOutputName(%q, %q) = %q, want %q", tt.template, tt.input, got, tt.want)
			}
		})
	}
}

func TestEnsureXLSXExt(t *testing.T) {
	tests := map[string]string{
		"a":        "a.xlsx",
		"a.xlsx":   "a.xlsx",
		"a.Xlsx":   "a.Xlsx",
		"a.csv":    "a.csv.xlsx",
		"dir/b.xl": "dir/b.xl.xlsx",
	}
	for in, want := range tests {
		if got := EnsureXLSXExt(in); got != want {
			t.Errorf("EnsureXLSXExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName("/tmp/dir/report.2024.xlsx"); got != "report.2024" {
		t.Errorf("BaseName() = %q, want report.2024", got)
	}
}
