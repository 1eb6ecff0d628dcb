package core

import (
	"path/filepath"
	"strings"
)

// XLSXExt is the extension enforced on every output file.
const XLSXExt = ".xlsx"

// BaseName returns the file name of path without directory or extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EnsureXLSXExt appends .xlsx unless name already ends with it (any case).
func EnsureXLSXExt(name string) string {
	if strings.HasSuffix(strings.ToLower(name), XLSXExt) {
		return name
	}
	return name + XLSXExt
}

// ResolveOutputName substitutes the base name of inputPath into template.
// A blank template falls back to DefaultNameTemplate.
func ResolveOutputName(template, inputPath string) string {
	template = strings.TrimSpace(template)
	if template == "" {
		template = DefaultNameTemplate
	}
	name := strings.ReplaceAll(template, BasenamePlaceholder, BaseName(inputPath))
	return EnsureXLSXExt(name)
}
