package types

import "time"

// RuleRecord is the exported form of one rule's metadata.
type RuleRecord struct {
	RuleID      int    `json:"rule_id" yaml:"rule_id"`
	Vocc        int64  `json:"vocc" yaml:"vocc"`
	Length      int64  `json:"length" yaml:"length"`
	Lambda      string `json:"lambda" yaml:"lambda"`
	LambdaRun   int64  `json:"lambda_run" yaml:"lambda_run"`
	Rho         string `json:"rho" yaml:"rho"`
	RhoRun      int64  `json:"rho_run" yaml:"rho_run"`
	SingleBlock bool   `json:"single_block" yaml:"single_block"`
}

// GrammarStats summarizes the size of a grammar against its text.
type GrammarStats struct {
	TextLen   int64 `json:"text_len" yaml:"text_len"`
	RuleCount int   `json:"rule_count" yaml:"rule_count"`
	SeqLen    int   `json:"seq_len" yaml:"seq_len"`

	// RHSSize is the total number of right-hand side symbols.
	RHSSize int `json:"rhs_size" yaml:"rhs_size"`

	// RLESize is the run-length encoded size of all rules.
	RLESize int `json:"rle_size" yaml:"rle_size"`

	Height int `json:"height" yaml:"height"`

	// Ratio is (RHSSize + SeqLen) / TextLen, or 0 for an empty text.
	Ratio float64 `json:"ratio" yaml:"ratio"`
}

// BaselineSizes holds general-purpose compressor sizes for comparison.
type BaselineSizes struct {
	Raw    int64 `json:"raw" yaml:"raw"`
	XZ     int64 `json:"xz" yaml:"xz"`
	Brotli int64 `json:"brotli" yaml:"brotli"`
}

// CatalogEntry is one grammar stored in the catalog.
type CatalogEntry struct {
	ID         string       `json:"id" yaml:"id"`
	Name       string       `json:"name" yaml:"name"`
	SourcePath string       `json:"source_path" yaml:"source_path"`
	Stats      GrammarStats `json:"stats" yaml:"stats"`
	AddedAt    time.Time    `json:"added_at" yaml:"added_at"`
	Rules      []RuleRecord `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// RoundtripStatus is the outcome of one roundtrip check.
type RoundtripStatus string

const (
	RoundtripPassed RoundtripStatus = "passed"
	RoundtripFailed RoundtripStatus = "failed"
	RoundtripError  RoundtripStatus = "error"
)
