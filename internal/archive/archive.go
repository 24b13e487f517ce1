// Package archive writes diagnosis results to a directory as JSON or YAML
// documents and reads them back.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/output"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Writer stores one document per diagnosis in Dir.
type Writer struct {
	Dir    string
	Format string
}

// NewWriter validates the format. An empty format means JSON.
func NewWriter(dir, format string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("archive directory is required")
	}
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatYAML:
	case "yml":
		format = FormatYAML
	default:
		return nil, fmt.Errorf("unknown archive format %q", format)
	}
	return &Writer{Dir: dir, Format: format}, nil
}

// FileName returns <basename>_analysis_<YYYYMMDD_HHMMSS>.<format> for r.
func FileName(r *model.DiagnosisResult, format string) string {
	base := filepath.Base(r.ImagePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "image"
	}
	return fmt.Sprintf("%s_analysis_%s.%s", base, r.Timestamp.UTC().Format("20060102_150405"), format)
}

// maxNameAttempts bounds the search for a free document name.
const maxNameAttempts = 100

// Write stores r and returns the document path. The directory is created on
// demand. Existing documents are never overwritten: a taken name gets the
// first 8 chars of the result id appended, then a counter.
func (w *Writer) Write(r *model.DiagnosisResult) (string, error) {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	f, path, err := w.create(r)
	if err != nil {
		return "", err
	}
	if err := output.Encode(f, r, w.Format); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// create opens the first free candidate name with O_EXCL.
func (w *Writer) create(r *model.DiagnosisResult) (*os.File, string, error) {
	name := FileName(r, w.Format)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}

	for i := 0; i < maxNameAttempts; i++ {
		candidate := stem
		switch {
		case i == 0:
		case id != "" && i == 1:
			candidate += "_" + id
		case id != "":
			candidate += fmt.Sprintf("_%s_%d", id, i)
		default:
			candidate += fmt.Sprintf("_%d", i+1)
		}
		path := filepath.Join(w.Dir, candidate+ext)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, "", fmt.Errorf("create archive file: %w", err)
		}
	}
	return nil, "", fmt.Errorf("no free archive name for %s after %d attempts", name, maxNameAttempts)
}

// Load parses an archived document. YAML is chosen by the .yaml/.yml
// extension, JSON otherwise.
func Load(path string) (*model.DiagnosisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var r model.DiagnosisResult
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &r)
	default:
		err = json.Unmarshal(data, &r)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &r, nil
}
