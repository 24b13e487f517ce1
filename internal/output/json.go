package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteJSON serializes v as indented JSON.
// If path is "-" or empty, writes to stdout.
func WriteJSON(v any, path string) error {
	return writeTo(path, func(w io.Writer) error { return encodeJSON(w, v) })
}

// WriteYAML serializes v as YAML with the same path rules as WriteJSON.
func WriteYAML(v any, path string) error {
	return writeTo(path, func(w io.Writer) error { return encodeYAML(w, v) })
}

// Write dispatches on format ("json" or "yaml").
func Write(v any, path, format string) error {
	if err := checkFormat(format); err != nil {
		return err
	}
	return writeTo(path, func(w io.Writer) error { return Encode(w, v, format) })
}

// Encode serializes v to w in format ("json" or "yaml").
func Encode(w io.Writer, v any, format string) error {
	switch format {
	case "", "json":
		return encodeJSON(w, v)
	case "yaml", "yml":
		return encodeYAML(w, v)
	default:
		return checkFormat(format)
	}
}

func checkFormat(format string) error {
	switch format {
	case "", "json", "yaml", "yml":
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	return nil
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}

func writeTo(path string, encode func(io.Writer) error) error {
	var w io.Writer = os.Stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return encode(w)
}
