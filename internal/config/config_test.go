package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.DefaultPort != 7921 {
		t.Errorf("DefaultPort = %d, want 7921", cfg.DefaultPort)
	}
	if cfg.LogFile != filepath.Join(".probekit", "debug.log") {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if cfg.DefaultLanguage != "javascript" {
		t.Errorf("DefaultLanguage = %q, want javascript", cfg.DefaultLanguage)
	}
	if cfg.DisableWatch {
		t.Error("DisableWatch defaults to true")
	}
}

func TestMergeNilLayersGiveDefaults(t *testing.T) {
	got := Merge(nil, nil)
	if got != Defaults() {
		t.Errorf("Merge(nil, nil) = %+v, want defaults", got)
	}
}

func TestMergeProjectOverridesGlobal(t *testing.T) {
	global := &Config{DefaultPort: 8000, DefaultLanguage: "python"}
	project := &Config{DefaultPort: 9000}

	got := Merge(global, project)
	if got.DefaultPort != 9000 {
		t.Errorf("DefaultPort = %d, want project's 9000", got.DefaultPort)
	}
	// Project leaves language unset, so the global value survives.
	if got.DefaultLanguage != "python" {
		t.Errorf("DefaultLanguage = %q, want python", got.DefaultLanguage)
	}
	// Neither layer sets the log file, so the default survives.
	if got.LogFile != Defaults().LogFile {
		t.Errorf("LogFile = %q, want default", got.LogFile)
	}
}

func TestMergeZeroValuesDoNotOverride(t *testing.T) {
	global := &Config{DefaultPort: 8500, LogFile: "global.log"}
	project := &Config{} // everything unset

	got := Merge(global, project)
	if got.DefaultPort != 8500 || got.LogFile != "global.log" {
		t.Errorf("empty project layer clobbered global: %+v", got)
	}
}

func TestMergeDisableWatchIsSticky(t *testing.T) {
	global := &Config{DisableWatch: true}
	project := &Config{} // false here must not re-enable

	got := Merge(global, project)
	if !got.DisableWatch {
		t.Error("project layer with DisableWatch unset re-enabled watching")
	}
}

func TestLoadProjectAbsentReturnsNil(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if cfg != nil {
		t.Errorf("LoadProject with no file = %+v, want nil", cfg)
	}
}

func TestLoadProjectReadsFile(t *testing.T) {
	t.Chdir(t.TempDir())
	content := `{"default_port": 8123, "default_language": "typescript"}`
	if err := os.WriteFile(".probekitrc", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProject()
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	if cfg == nil || cfg.DefaultPort != 8123 || cfg.DefaultLanguage != "typescript" {
		t.Errorf("LoadProject = %+v", cfg)
	}
}

func TestLoadProjectMalformedFileIsParseError(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.WriteFile(".probekitrc", []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadProject()
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if !strings.Contains(parseErr.Error(), ".probekitrc") {
		t.Errorf("ParseError does not name the file: %v", parseErr)
	}
	if parseErr.Unwrap() == nil {
		t.Error("ParseError does not wrap the underlying error")
	}
}

func TestGlobalPath(t *testing.T) {
	path, err := GlobalPath()
	if err != nil {
		t.Fatalf("GlobalPath: %v", err)
	}
	want := filepath.Join(".config", "probekit", "config.json")
	if !strings.HasSuffix(path, want) {
		t.Errorf("GlobalPath = %q, want suffix %q", path, want)
	}
}
