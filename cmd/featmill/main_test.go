package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"featmill/internal/config"
	"featmill/internal/ledger"
	"featmill/internal/publish"
	"featmill/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

var testIDs = []string{"u1", "u2", "u3"}

// setupCLITestEnv writes a three utterance corpus with an lf0 and a
// two-column mgc stream and one meanstd compose job "cmp" over them.
func setupCLITestEnv(t *testing.T, opts ...func(*config.Config)) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	drift := -1
	cfg := testsupport.NewConfig(t,
		testsupport.WithCorpus(testIDs, 2),
		testsupport.WithJob(config.Compose{
			Name:          "cmp",
			Inputs:        []string{"wav/*.lf0", "wav/*.mgc:(-1,2)"},
			Output:        "cmp/*.cmp",
			Windows:       [][]float64{{-0.5, 0, 0.5}},
			Normalization: "meanstd",
			FinalCheck:    true,
			MaxFrameDrift: &drift,
		}),
	)
	cfg.Logging.Level = "error"
	base := testsupport.BaseDir(cfg)

	for n, id := range testIDs {
		frames := 5 + n
		testsupport.WriteStream(t, filepath.Join(base, "wav", id+".lf0"),
			testsupport.Fill(frames, 1, func(i, _ int) float32 { return float32(i*i + n) }))
		testsupport.WriteStream(t, filepath.Join(base, "wav", id+".mgc"),
			testsupport.Fill(frames, 2, func(i, j int) float32 { return float32((i*i)%5*(j+1) - n) }))
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &cliTestEnv{cfg: cfg, configPath: testsupport.WriteConfig(t, cfg), baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("featmill %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

type runJSON struct {
	ID     string `json:"id"`
	Job    string `json:"job"`
	Kind   string `json:"kind"`
	Status string `json:"status"`
}

func listRuns(t *testing.T, env *cliTestEnv) []runJSON {
	t.Helper()
	var runs []runJSON
	if err := json.Unmarshal([]byte(mustRunCLI(t, env, "runs", "--json")), &runs); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	return runs
}

func TestComposeStatsAndRuns(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "compose")
	requireContains(t, out, "(1+2)x2")
	requireContains(t, out, "Training Frames")
	requireContains(t, out, "3 (2 training, 1 held out)")
	requireContains(t, out, "Final Check")

	for _, id := range testIDs {
		if _, err := os.Stat(filepath.Join(env.baseDir, "cmp", id+".cmp")); err != nil {
			t.Fatalf("expected composed file for %s: %v", id, err)
		}
	}

	out = mustRunCLI(t, env, "stats", "cmp")
	requireContains(t, out, "lf0[0]")
	requireContains(t, out, "mgc[1]")
	requireContains(t, out, "window 1")
	requireContains(t, out, "cmp: 6 dimensions ((1+2)x2), 0 zero-variance, 6 kept")

	runs := listRuns(t, env)
	if len(runs) != 1 || runs[0].Kind != "compose" || runs[0].Status != "succeeded" {
		t.Fatalf("unexpected runs %+v", runs)
	}

	out = mustRunCLI(t, env, "runs", "show", runs[0].ID[:8], "--utterances")
	requireContains(t, out, runs[0].ID)
	requireContains(t, out, "heldout")
	requireContains(t, out, "u3")
}

func TestComposeUnknownJob(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"compose", "nope"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), `no compose job "nope"`) {
		t.Fatalf("expected unknown job error, got %v", err)
	}
}

func TestNormalizeAppliesPersistedParameters(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "compose", "cmp")

	for _, id := range testIDs {
		testsupport.WriteStream(t, filepath.Join(env.baseDir, "pred", id+".raw"),
			testsupport.Fill(4, 6, func(i, j int) float32 { return float32(i + j) }))
	}
	out := mustRunCLI(t, env, "normalize", "cmp",
		"--input", filepath.Join(env.baseDir, "pred", "*.raw"),
		"--output", filepath.Join(env.baseDir, "pred_norm", "*.raw"),
	)
	requireContains(t, out, "6 read, 6 written")

	m := testsupport.ReadMatrix(t, filepath.Join(env.baseDir, "pred_norm", "u2.raw"), 6)
	if m.Rows != 4 {
		t.Fatalf("normalized rows = %d, want 4", m.Rows)
	}

	runs := listRuns(t, env)
	if runs[0].Kind != string(ledger.KindNormalize) || runs[0].Status != "succeeded" {
		t.Fatalf("latest run = %+v, want a succeeded normalize run", runs[0])
	}
}

func TestDenormRestoresStaticFeatures(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "compose")

	target := filepath.Join(env.baseDir, "denorm", "u1.raw")
	out := mustRunCLI(t, env, "denorm", "cmp", filepath.Join(env.baseDir, "cmp", "u1.cmp"), target)
	requireContains(t, out, "5 frames x 6 dims")

	m := testsupport.ReadMatrix(t, target, 6)
	for i := 0; i < m.Rows; i++ {
		want := float32(i * i)
		if diff := m.At(i, 0) - want; diff > 1e-3 || diff < -1e-3 {
			t.Fatalf("frame %d lf0 = %v, want %v", i, m.At(i, 0), want)
		}
	}
}

func TestWeightsEnergy(t *testing.T) {
	env := setupCLITestEnv(t, func(cfg *config.Config) {
		base := testsupport.BaseDir(cfg)
		cfg.Weights.Method = "energy"
		cfg.Weights.Input = filepath.Join(base, "wav", "*.mgc:(-1,2)")
		cfg.Weights.Output = filepath.Join(base, "weights", "*.w")
	})

	out := mustRunCLI(t, env, "weights")
	requireContains(t, out, "energy")

	for n, id := range testIDs {
		w := testsupport.ReadMatrix(t, filepath.Join(env.baseDir, "weights", id+".w"), 1)
		if w.Rows != 5+n {
			t.Fatalf("%s: %d weights, want %d", id, w.Rows, 5+n)
		}
	}
	runs := listRuns(t, env)
	if runs[0].Kind != "weights" || runs[0].Job != "weights" {
		t.Fatalf("latest run = %+v", runs[0])
	}
}

type fakeS3 struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func TestPublishUploadsArtifacts(t *testing.T) {
	env := setupCLITestEnv(t, func(cfg *config.Config) {
		cfg.Publish.Bucket = "corpora"
		cfg.Publish.Prefix = "voices"
		cfg.Publish.Region = "us-east-1"
	})
	fake := &fakeS3{}
	orig := newPublishAPI
	newPublishAPI = func(context.Context, publish.Config) (publish.API, error) { return fake, nil }
	t.Cleanup(func() { newPublishAPI = orig })

	mustRunCLI(t, env, "compose")
	out := mustRunCLI(t, env, "publish", "cmp")
	requireContains(t, out, "voices/cmp/mean4norm.dat")
	requireContains(t, out, "keepidx.dat")

	if len(fake.keys) != 6 {
		t.Fatalf("uploaded %v, want the 4 statistics and the meanstd pair", fake.keys)
	}
}

func TestPublishRequiresBucket(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"publish", "cmp"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "publish.bucket") {
		t.Fatalf("expected bucket error, got %v", err)
	}
}

func TestPreflightReportsMissingInputs(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.RemoveAll(filepath.Join(env.baseDir, "wav")); err != nil {
		t.Fatal(err)
	}
	out, _, err := runCLI(t, []string{"preflight"}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, out, "FAIL")
	requireContains(t, out, "does not exist")
}

func TestConfigInitValidateAndShow(t *testing.T) {
	env := setupCLITestEnv(t, func(cfg *config.Config) {
		cfg.Publish.Bucket = "corpora"
		cfg.Publish.Region = "us-east-1"
		cfg.Publish.AccessKeyID = "AKIA"
		cfg.Publish.SecretAccessKey = "hunter2"
	})

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Job cmp: (1+2)x2, meanstd")
	requireContains(t, out, "Configuration valid")

	out = mustRunCLI(t, env, "config", "show")
	requireContains(t, out, "********")
	if strings.Contains(out, "hunter2") {
		t.Fatal("config show leaked the secret key")
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected config init to refuse overwriting")
	}
}

func TestLogLevelFlagValidation(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"--log-level", "verbose", "runs"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "--log-level") {
		t.Fatalf("expected log level error, got %v", err)
	}
	mustRunCLI(t, env, "--log-level", "debug", "runs")
}

func TestLogsShowsRunLog(t *testing.T) {
	env := setupCLITestEnv(t, func(cfg *config.Config) {
		cfg.Logging.Level = "info"
	})
	mustRunCLI(t, env, "compose")
	runs := listRuns(t, env)

	out := mustRunCLI(t, env, "logs", "--run", runs[0].ID[:8], "--job", "cmp")
	requireContains(t, out, "composition finished")
	requireContains(t, out, "[compose]")
}
