package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// SaveFiles persists less.files into the config at path, keeping every
// other key. The file is created when missing.
func SaveFiles(path string, files []string) error {
	values := make([]interface{}, 0, len(files))
	for _, f := range files {
		values = append(values, f)
	}
	return saveLessKey(path, "files", values)
}

// SaveSuppressNotice persists less.suppress_notice.
func SaveSuppressNotice(path string, suppress bool) error {
	return saveLessKey(path, "suppress_notice", suppress)
}

func saveLessKey(path, key string, value interface{}) error {
	doc := map[string]interface{}{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return fmt.Errorf("read %s: %w", path, err)
	}

	less, _ := doc["less"].(map[string]interface{})
	if less == nil {
		less = map[string]interface{}{}
	}
	less[key] = value
	doc["less"] = less

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	perm := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return os.WriteFile(path, buf.Bytes(), perm)
}

// ShouldReactToConfigChange reports whether a config edit needs the index
// rebuilt: the root files or the notice flags changed.
func ShouldReactToConfigChange(prev, next *Config) bool {
	if prev == nil || next == nil {
		return prev != next
	}
	if prev.Less.NoticeEnabled() != next.Less.NoticeEnabled() ||
		prev.Less.SuppressNotice != next.Less.SuppressNotice {
		return true
	}
	if len(prev.Less.Files) != len(next.Less.Files) {
		return true
	}
	for i := range prev.Less.Files {
		if prev.Less.Files[i] != next.Less.Files[i] {
			return true
		}
	}
	return false
}
