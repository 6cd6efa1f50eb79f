package types

import "time"

// LogFormat selects how log lines are rendered.
type LogFormat string

const (
	LogConsole LogFormat = "console"
	LogJSON    LogFormat = "json"
)

// LogConfig holds logging settings shared by every command.
type LogConfig struct {
	// Level is a zerolog level name (trace, debug, info, warn, error).
	Level string `json:"level" yaml:"level"`

	// Format selects console or json output.
	Format LogFormat `json:"format" yaml:"format"`
}

// RecompressConfig holds settings for RePair recompression.
type RecompressConfig struct {
	// MaxRounds bounds the number of pair replacements. Zero means run until
	// no pair occurs twice.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`
}

// RoundtripConfig holds settings for the roundtrip check.
type RoundtripConfig struct {
	// WorkDir receives intermediate files. Empty means next to each input.
	WorkDir string `json:"work_dir" yaml:"work_dir"`

	// Concurrency bounds how many files are checked at once (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// ExternalEncoder is the path or name of the native RePair encoder.
	// When set, it replaces the built-in compressor and .rp writer.
	ExternalEncoder string `json:"external_encoder,omitempty" yaml:"external_encoder,omitempty"`

	// ExternalDecoder is the path or name of the native .rp decoder.
	ExternalDecoder string `json:"external_decoder,omitempty" yaml:"external_decoder,omitempty"`

	// Timeout bounds each external tool invocation. Zero means no limit.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	Recompress RecompressConfig `json:"recompress" yaml:"recompress"`
}

// CatalogConfig holds settings for the grammar catalog.
type CatalogConfig struct {
	// Dir contains catalog.db and exports (default "catalog").
	Dir string `json:"dir" yaml:"dir"`
}

// Config groups all settings read from grammar-extractor.yaml.
type Config struct {
	Log        LogConfig        `json:"log" yaml:"log"`
	WorkDir    string           `json:"work_dir" yaml:"work_dir"`
	Recompress RecompressConfig `json:"recompress" yaml:"recompress"`
	Roundtrip  RoundtripConfig  `json:"roundtrip" yaml:"roundtrip"`
	Catalog    CatalogConfig    `json:"catalog" yaml:"catalog"`
	Progress   bool             `json:"progress" yaml:"progress"`
}
