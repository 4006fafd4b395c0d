package meshes

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration of the meshes CLI.
//
// Example:
//
//	app_name: xprim
//	content_url: https://cdn.example.com/assets_web/mesh/
//	concurrency: 8
//	request_timeout: 10s
//	log_level: debug
type FileConfig struct {
	AppName        string `yaml:"app_name"`
	ContentURL     string `yaml:"content_url"`
	DataDir        string `yaml:"data_dir"`
	Concurrency    int    `yaml:"concurrency"`
	RequestTimeout string `yaml:"request_timeout"`
	LogLevel       string `yaml:"log_level"`
}

// LoadConfigFile reads a YAML configuration file. Unknown keys are an
// error.
func LoadConfigFile(path string) (FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	return decodeConfig(f)
}

func decodeConfig(r io.Reader) (FileConfig, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var fc FileConfig
	if err := dec.Decode(&fc); err != nil {
		if errors.Is(err, io.EOF) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("parsing config: %w", err)
	}
	return fc, nil
}

// Config returns the module configuration part of fc.
func (fc FileConfig) Config() Config {
	return Config{
		AppName:    fc.AppName,
		ContentURL: fc.ContentURL,
		DataDir:    fc.DataDir,
	}
}

// Options returns the manager options set in fc.
func (fc FileConfig) Options() ([]ManagerOption, error) {
	var opts []ManagerOption
	if fc.Concurrency != 0 {
		opts = append(opts, WithConcurrency(fc.Concurrency))
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("request_timeout: %w", err)
		}
		opts = append(opts, WithRequestTimeout(d))
	}
	return opts, nil
}
