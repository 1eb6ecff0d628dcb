package web

// handlers_common.go contains shared request parsing helpers.

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/widelong/internal/core"
	"github.com/JonMunkholm/widelong/internal/sheet"
)

// formOverhead is the room left for non-file multipart fields.
const formOverhead = 1 << 20

// previewLimit caps the rows returned by JSON previews.
const previewLimit = 100

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// upload is a spreadsheet received in a multipart form.
type upload struct {
	Name string
	Data []byte
}

// readUpload parses the multipart form and returns the "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (upload, error) {
	maxSize := s.cfg.Convert.MaxFileSize
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)
	}

	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return upload{}, &core.ReadError{Path: "upload", Err: fmt.Errorf("%w: %v", sheet.ErrFileTooLarge, err)}
		}
		return upload{}, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return upload{}, &core.ReadError{Path: header.Filename, Err: err}
	}
	return upload{Name: header.Filename, Data: data}, nil
}

// attachment returns a Content-Disposition value for name. Non-ASCII names
// are encoded per RFC 2231.
func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

// cellStrings renders at most limit rows of t as text.
func cellStrings(t *core.Table, limit int) [][]string {
	n := t.NumRows()
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := t.Row(i)
		out[i] = make([]string, len(row))
		for j, c := range row {
			out[i][j] = c.String()
		}
	}
	return out
}
