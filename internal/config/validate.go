package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"featmill/internal/normalize"
	"featmill/internal/pathspec"
	"featmill/internal/window"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("toml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if err := c.validateCorpus(); err != nil {
		return err
	}
	if err := c.validateCompose(); err != nil {
		return err
	}
	if err := c.validateWeights(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	return nil
}

// validateStruct reports the first tag violation using TOML key paths.
func validateStruct(c *Config) error {
	err := structValidator.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	key := fe.Namespace()
	if _, rest, ok := strings.Cut(key, "."); ok {
		key = rest
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", key)
	case "required_with":
		return fmt.Errorf("%s is required when %s is set", key, strings.ToLower(fe.Param()))
	case "oneof":
		return fmt.Errorf("%s must be one of: %s (got %v)", key, strings.ReplaceAll(fe.Param(), " ", ", "), fe.Value())
	case "url":
		return fmt.Errorf("%s must be a URL", key)
	case "min":
		return fmt.Errorf("%s needs at least %s entries", key, fe.Param())
	case "len":
		return fmt.Errorf("%s must have exactly %s entries", key, fe.Param())
	case "gt":
		return fmt.Errorf("%s must be greater than %s", key, fe.Param())
	case "gte":
		return fmt.Errorf("%s must be at least %s", key, fe.Param())
	case "lte":
		return fmt.Errorf("%s must be at most %s", key, fe.Param())
	default:
		return fmt.Errorf("%s failed %s validation", key, fe.Tag())
	}
}

func (c *Config) validateCorpus() error {
	if len(c.Compose) == 0 && c.Weights.Method == "" {
		return nil
	}
	if strings.TrimSpace(c.Corpus.FileIDs) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/featmill/config.toml"
		}
		return fmt.Errorf("corpus.file_ids is required. Edit %s (create with 'featmill config init')", defaultPath)
	}
	if len(c.Compose) > 0 && c.Corpus.ValidStart <= 0 {
		return errors.New("corpus.valid_start must be positive (at least one training utterance)")
	}
	return nil
}

func (c *Config) validateCompose() error {
	seen := make(map[string]struct{}, len(c.Compose))
	for i, job := range c.Compose {
		prefix := fmt.Sprintf("compose[%d]", i)
		if _, dup := seen[job.Name]; dup {
			return fmt.Errorf("%s.name %q is used by more than one job", prefix, job.Name)
		}
		seen[job.Name] = struct{}{}

		inputs, err := pathspec.ParseAll(job.Inputs)
		if err != nil {
			return fmt.Errorf("%s.inputs: %w", prefix, err)
		}
		if _, err := pathspec.Parse(job.Output); err != nil {
			return fmt.Errorf("%s.output: %w", prefix, err)
		}
		if _, err := window.ParseKernels(job.Windows); err != nil {
			return fmt.Errorf("%s.windows: %w", prefix, err)
		}
		kind, err := normalize.ParseKind(job.Normalization)
		if err != nil {
			return fmt.Errorf("%s.normalization: %w", prefix, err)
		}
		switch kind {
		case normalize.KindMinMax:
			if len(job.TargetRange) != 2 || !(job.TargetRange[0] < job.TargetRange[1]) {
				return fmt.Errorf("%s.target_range must be [lo, hi] with lo < hi", prefix)
			}
		case normalize.KindMeanStdProtected:
			if job.ProtectedStream >= len(inputs) {
				return fmt.Errorf("%s.protected_stream %d must index one of the %d inputs", prefix, job.ProtectedStream, len(inputs))
			}
		}
	}
	return nil
}

func (c *Config) validateWeights() error {
	switch c.Weights.Method {
	case "":
		return nil
	case "energy":
		if c.Weights.Input == "" {
			return errors.New("weights.input must be set when weights.method is energy")
		}
		if _, err := pathspec.Parse(c.Weights.Input); err != nil {
			return fmt.Errorf("weights.input: %w", err)
		}
	case "alignment":
		if c.Weights.Labels == "" {
			return errors.New("weights.labels must be set when weights.method is alignment")
		}
		if _, err := pathspec.Parse(c.Weights.Labels); err != nil {
			return fmt.Errorf("weights.labels: %w", err)
		}
	}
	if _, err := pathspec.Parse(c.Weights.Output); err != nil {
		return fmt.Errorf("weights.output: %w", err)
	}
	if c.Weights.Reference != "" {
		if _, err := c.Job(c.Weights.Reference); err != nil {
			return fmt.Errorf("weights.reference: %w", err)
		}
	}
	return nil
}

func (c *Config) validatePublish() error {
	if !c.PublishEnabled() {
		return nil
	}
	if (c.Publish.AccessKeyID == "") != (c.Publish.SecretAccessKey == "") {
		return errors.New("publish.access_key_id and publish.secret_access_key must be set together")
	}
	return nil
}
