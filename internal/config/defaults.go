package config

const (
	defaultStateDir         = "~/.local/share/featmill"
	defaultLogDir           = "~/.local/share/featmill/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultShift            = 0.005
	defaultNormalization    = "meanstd"
	defaultMaxFrameDrift    = -1
	defaultSpectrum         = "fwlspec"
	defaultThresholdDB      = -32.0
	defaultLabelPattern     = `([^\^]+)\^([^-]+)-([^\+]+)\+([^=]+)=([^@]+)@(.+)`
	defaultPhoneGroup       = 3
	defaultSilence          = "sil"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Corpus: Corpus{
			Shift: defaultShift,
		},
		Weights: Weights{
			Spectrum:      defaultSpectrum,
			ThresholdDB:   defaultThresholdDB,
			LabelPattern:  defaultLabelPattern,
			PhoneGroup:    defaultPhoneGroup,
			Silence:       defaultSilence,
			MaxFrameDrift: defaultMaxFrameDrift,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
			Progress:      true,
		},
	}
}
