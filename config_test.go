package meshes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDecodeConfig(t *testing.T) {
	input := `
app_name: xprim
content_url: https://cdn.example.com/mesh/
data_dir: /var/lib/xprim
concurrency: 8
request_timeout: 10s
log_level: debug
`
	fc, err := decodeConfig(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decodeConfig() error = %v", err)
	}

	want := FileConfig{
		AppName:        "xprim",
		ContentURL:     "https://cdn.example.com/mesh/",
		DataDir:        "/var/lib/xprim",
		Concurrency:    8,
		RequestTimeout: "10s",
		LogLevel:       "debug",
	}
	if fc != want {
		t.Errorf("decodeConfig() = %+v, want %+v", fc, want)
	}

	cfg := fc.Config()
	if cfg.AppName != "xprim" || cfg.ContentURL != want.ContentURL || cfg.DataDir != want.DataDir {
		t.Errorf("Config() = %+v", cfg)
	}

	opts, err := fc.Options()
	if err != nil {
		t.Fatalf("Options() error = %v", err)
	}
	c := newManagerConfig()
	for _, opt := range opts {
		opt(c)
	}
	if c.concurrency != 8 || c.requestTimeout != 10*time.Second {
		t.Errorf("options gave concurrency %d, timeout %v", c.concurrency, c.requestTimeout)
	}
}

func TestDecodeConfigEmpty(t *testing.T) {
	fc, err := decodeConfig(strings.NewReader(""))
	if err != nil {
		t.Fatalf("decodeConfig() error = %v", err)
	}
	if fc != (FileConfig{}) {
		t.Errorf("decodeConfig() = %+v, want zero", fc)
	}

	opts, err := fc.Options()
	if err != nil || len(opts) != 0 {
		t.Errorf("Options() = %d options, %v, want none", len(opts), err)
	}
}

func TestDecodeConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown key", "app_name: xprim\nregistry_url: x\n"},
		{"wrong type", "concurrency: many\n"},
		{"not a mapping", "- a\n- b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeConfig(strings.NewReader(tt.input)); err == nil {
				t.Error("decodeConfig() should fail")
			}
		})
	}
}

func TestFileConfigBadTimeout(t *testing.T) {
	fc := FileConfig{RequestTimeout: "soon"}
	if _, err := fc.Options(); err == nil {
		t.Error("Options() should reject an unparsable request_timeout")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meshes.yaml")
	if err := os.WriteFile(path, []byte("app_name: demo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile() error = %v", err)
	}
	if fc.AppName != "demo" {
		t.Errorf("AppName = %q, want demo", fc.AppName)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfigFile() should fail for a missing file")
	}
}
