// Package store centralises the file I/O the three processes use to
// talk to each other. Writers are atomic (same-directory tmp file plus
// rename) so readers on the other side never observe a half-written
// file; readers are tolerant and fall back to defaults, since a peer
// process may not have produced its file yet.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ReadText returns the file contents, or def when the file is missing
// or unreadable.
func ReadText(path, def string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return def
	}
	return string(data)
}

// WriteText writes content atomically, creating parent directories as
// needed.
func WriteText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// ReadJSON unmarshals the file into out. Missing or corrupt files
// return an error; callers decide whether that is fatal.
func ReadJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// WriteJSON writes data as indented JSON, atomically.
func WriteJSON(path string, data interface{}) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", path, err)
	}
	return WriteText(path, string(raw)+"\n")
}

// AppendJSONL appends one record to a JSON-lines file. Appends are not
// atomic but each record is a single short write on one line.
func AppendJSONL(path string, record interface{}) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal for %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("append %s: %w", path, err)
	}
	return nil
}

// ScanJSONL reads every parseable record from a JSON-lines file,
// skipping corrupt lines. A missing file yields an empty slice.
func ScanJSONL(path string) []map[string]interface{} {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []map[string]interface{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err == nil {
			out = append(out, rec)
		}
	}
	return out
}

// ReadSignal reads a single float from a signal file.
func ReadSignal(path string, def float64) float64 {
	raw := strings.TrimSpace(ReadText(path, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

// WriteSignal writes a single float atomically.
func WriteSignal(path string, value float64) error {
	return WriteText(path, strconv.FormatFloat(value, 'g', -1, 64))
}

// ReadIntSignal reads a single integer signal level. Float contents
// are truncated, matching what older signal files contain.
func ReadIntSignal(path string, def int) int {
	raw := strings.TrimSpace(ReadText(path, ""))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return int(v)
}

// WriteIntSignal writes a single integer atomically.
func WriteIntSignal(path string, value int) error {
	return WriteText(path, strconv.Itoa(value))
}
