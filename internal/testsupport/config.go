package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"featmill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Logging.Progress = false

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithCorpus writes ids to an id list under the base directory and points
// the corpus section at it.
func WithCorpus(ids []string, validStart int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Corpus.FileIDs = WriteIDs(b.t, filepath.Join(b.baseDir, "file_id_list.scp"), ids)
		b.cfg.Corpus.ValidStart = validStart
	}
}

// WithJob appends a compose job. Relative templates are resolved against
// the base directory.
func WithJob(job config.Compose) ConfigOption {
	return func(b *configBuilder) {
		for i, in := range job.Inputs {
			job.Inputs[i] = b.resolve(in)
		}
		job.Output = b.resolve(job.Output)
		b.cfg.Compose = append(b.cfg.Compose, job)
	}
}

func (b *configBuilder) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(b.baseDir, path)
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteConfig encodes cfg, secrets included, as TOML next to its temp
// directories and returns the file path.
func WriteConfig(t testing.TB, cfg *config.Config) string {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	path := filepath.Join(BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
