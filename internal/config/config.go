package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"featmill/internal/faults"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log directories.
type Paths struct {
	StateDir string `toml:"state_dir" validate:"required"`
	LogDir   string `toml:"log_dir" validate:"required"`
}

// Corpus names the utterance list and its training split.
type Corpus struct {
	FileIDs string `toml:"file_ids"`
	// ValidStart is the index of the first held-out utterance, which is also
	// the number of training utterances.
	ValidStart int     `toml:"valid_start" validate:"gte=0"`
	Shift      float64 `toml:"shift" validate:"gt=0"`
}

// Compose describes one composed corpus.
type Compose struct {
	Name             string      `toml:"name" validate:"required"`
	Inputs           []string    `toml:"inputs" validate:"min=1,dive,required"`
	Output           string      `toml:"output" validate:"required"`
	Windows          [][]float64 `toml:"windows"`
	Normalization    string      `toml:"normalization" validate:"oneof=minmax meanstd meanstd_protected none"`
	TargetRange      []float64   `toml:"target_range,omitempty" validate:"omitempty,len=2"`
	ProtectedStream  int         `toml:"protected_stream" validate:"gte=0"`
	DropZeroVariance bool        `toml:"drop_zero_variance"`
	FinalCheck       bool        `toml:"final_check"`
	// MaxFrameDrift is nil until normalize fills in the unbounded default.
	MaxFrameDrift *int `toml:"max_frame_drift" validate:"omitempty,gte=-1"`
}

// Drift returns the frame drift tolerance, -1 meaning unbounded.
func (c Compose) Drift() int {
	if c.MaxFrameDrift == nil {
		return defaultMaxFrameDrift
	}
	return *c.MaxFrameDrift
}

// Weights configures per-frame weight generation.
type Weights struct {
	Method       string  `toml:"method" validate:"omitempty,oneof=energy alignment"`
	Output       string  `toml:"output" validate:"required_with=Method"`
	Input        string  `toml:"input"`
	Spectrum     string  `toml:"spectrum" validate:"omitempty,oneof=fwlspec mcep fwcep"`
	ThresholdDB  float64 `toml:"threshold_db" validate:"lte=0"`
	Labels       string  `toml:"labels"`
	LabelPattern string  `toml:"label_pattern"`
	PhoneGroup   int     `toml:"phone_group" validate:"gte=1"`
	Silence      string  `toml:"silence"`
	// Reference names a compose job whose frame counts the weights follow.
	Reference     string `toml:"reference"`
	MaxFrameDrift int    `toml:"max_frame_drift" validate:"gte=-1"`
}

// Publish configures artifact upload to S3-compatible storage.
type Publish struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix"`
	Region          string `toml:"region" validate:"required_with=Bucket"`
	Endpoint        string `toml:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" validate:"oneof=console json"`
	Level         string `toml:"level" validate:"oneof=debug info warn error"`
	RetentionDays int    `toml:"retention_days" validate:"gte=0"`
	Progress      bool   `toml:"progress"`
}

// Config encapsulates all configuration values for featmill.
//
// Configuration sections by subsystem:
//   - Paths: run ledger state and log files
//   - Corpus: utterance id list, training split and frame shift
//   - Compose: one entry per composed corpus
//   - Weights: energy or alignment weight generation
//   - Publish: S3 upload of composed artifacts
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths     `toml:"paths"`
	Corpus  Corpus    `toml:"corpus"`
	Compose []Compose `toml:"compose" validate:"dive"`
	Weights Weights   `toml:"weights"`
	Publish Publish   `toml:"publish"`
	Logging Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/featmill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, faults.Wrap(faults.ErrConfiguration, "config", "open", resolvedPath, err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, faults.Wrap(faults.ErrConfiguration, "config", "parse", resolvedPath, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, faults.Wrap(faults.ErrConfiguration, "config", "normalize", "", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, faults.Wrap(faults.ErrConfiguration, "config", "validate", "", err)
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("featmill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath is the SQLite run ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "featmill.db")
}

// Job returns the compose job called name.
func (c *Config) Job(name string) (*Compose, error) {
	for i := range c.Compose {
		if c.Compose[i].Name == name {
			return &c.Compose[i], nil
		}
	}
	names := make([]string, 0, len(c.Compose))
	for _, job := range c.Compose {
		names = append(names, job.Name)
	}
	return nil, faults.Wrap(faults.ErrConfiguration, "config", "job",
		fmt.Sprintf("no compose job %q (configured: %s)", name, strings.Join(names, ", ")), nil)
}

// PublishEnabled reports whether an upload bucket is configured.
func (c *Config) PublishEnabled() bool {
	return strings.TrimSpace(c.Publish.Bucket) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders cfg as TOML with secrets masked.
func (c *Config) Encode() ([]byte, error) {
	masked := *c
	if masked.Publish.SecretAccessKey != "" {
		masked.Publish.SecretAccessKey = "********"
	}
	return toml.Marshal(masked)
}
