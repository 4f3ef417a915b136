package converter

import "github.com/stackvity/utf-cast/pkg/converter/encoding"

// Defaults used for RunOptions and for the viper defaults of the CLI.
const (
	DefaultFilePattern     = "*.*"
	DefaultRecursive       = true
	DefaultWriteBOM        = true
	DefaultDetectOnly      = false
	DefaultTargetEncoding  = encoding.LabelUTF8
	DefaultDefaultEncoding = encoding.DefaultCharset
	DefaultAtomicWrite     = false
	DefaultTuiEnabled      = true
	DefaultOutputFormat    = OutputFormatText
	DefaultVerbose         = false
)

// ReportSchemaVersion is the version of the JSON/YAML report layout.
const ReportSchemaVersion = "1.0"
