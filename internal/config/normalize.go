package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCorpus(); err != nil {
		return err
	}
	if err := c.normalizeCompose(); err != nil {
		return err
	}
	if err := c.normalizeWeights(); err != nil {
		return err
	}
	c.normalizePublish()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCorpus() error {
	var err error
	if c.Corpus.FileIDs, err = expandPath(strings.TrimSpace(c.Corpus.FileIDs)); err != nil {
		return fmt.Errorf("corpus.file_ids: %w", err)
	}
	if c.Corpus.Shift == 0 {
		c.Corpus.Shift = defaultShift
	}
	return nil
}

func (c *Config) normalizeCompose() error {
	for i := range c.Compose {
		job := &c.Compose[i]
		job.Name = strings.TrimSpace(job.Name)
		job.Normalization = strings.ToLower(strings.TrimSpace(job.Normalization))
		if job.Normalization == "" {
			job.Normalization = defaultNormalization
		}
		if len(job.TargetRange) == 0 {
			job.TargetRange = nil
			if job.Normalization == "minmax" {
				job.TargetRange = []float64{-1, 1}
			}
		}
		if job.MaxFrameDrift == nil {
			drift := defaultMaxFrameDrift
			job.MaxFrameDrift = &drift
		}
		inputs := make([]string, 0, len(job.Inputs))
		for _, raw := range job.Inputs {
			expanded, err := expandDescriptor(raw)
			if err != nil {
				return fmt.Errorf("compose[%d].inputs: %w", i, err)
			}
			inputs = append(inputs, expanded)
		}
		job.Inputs = inputs
		var err error
		if job.Output, err = expandDescriptor(job.Output); err != nil {
			return fmt.Errorf("compose[%d].output: %w", i, err)
		}
	}
	return nil
}

func (c *Config) normalizeWeights() error {
	c.Weights.Method = strings.ToLower(strings.TrimSpace(c.Weights.Method))
	c.Weights.Spectrum = strings.ToLower(strings.TrimSpace(c.Weights.Spectrum))
	if c.Weights.Spectrum == "" {
		c.Weights.Spectrum = defaultSpectrum
	}
	if strings.TrimSpace(c.Weights.LabelPattern) == "" {
		c.Weights.LabelPattern = defaultLabelPattern
	}
	if c.Weights.PhoneGroup == 0 {
		c.Weights.PhoneGroup = defaultPhoneGroup
	}
	c.Weights.Silence = strings.TrimSpace(c.Weights.Silence)
	if c.Weights.Silence == "" {
		c.Weights.Silence = defaultSilence
	}
	c.Weights.Reference = strings.TrimSpace(c.Weights.Reference)
	var err error
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"weights.input", &c.Weights.Input},
		{"weights.labels", &c.Weights.Labels},
		{"weights.output", &c.Weights.Output},
	} {
		if *field.value, err = expandDescriptor(*field.value); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	return nil
}

func (c *Config) normalizePublish() {
	c.Publish.Bucket = strings.TrimSpace(c.Publish.Bucket)
	c.Publish.Prefix = strings.Trim(strings.TrimSpace(c.Publish.Prefix), "/")
	c.Publish.Region = strings.TrimSpace(c.Publish.Region)
	c.Publish.Endpoint = strings.TrimSpace(c.Publish.Endpoint)
	c.Publish.AccessKeyID = strings.TrimSpace(c.Publish.AccessKeyID)
	c.Publish.SecretAccessKey = strings.TrimSpace(c.Publish.SecretAccessKey)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	switch c.Logging.Level {
	case "":
		c.Logging.Level = defaultLogLevel
	case "warning":
		c.Logging.Level = "warn"
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// expandDescriptor expands the path part of a "template[:shape]" descriptor
// and leaves the shape suffix untouched.
func expandDescriptor(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	path, shape := raw, ""
	if idx := strings.LastIndex(raw, ":"); idx >= 0 && strings.Contains(raw[idx:], "(") {
		path, shape = raw[:idx], raw[idx:]
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", err
	}
	return expanded + shape, nil
}
