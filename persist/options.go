package persist

// Format names one of the supported on-disk encodings (spec §4.F/§6).
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatRON    Format = "ron"
	FormatBinary Format = "bin"
)

type encodeOptions struct {
	debugInfo bool
	minify    bool
}

// Option configures one Encode call.
type Option func(*encodeOptions)

// WithDebugInfo includes the Program's retained source-line/label/global
// debuginfo in the encoded document, when present.
func WithDebugInfo() Option {
	return func(o *encodeOptions) { o.debugInfo = true }
}

// WithMinify drops non-essential whitespace. Has no effect on the binary
// format, which carries no whitespace to begin with.
func WithMinify() Option {
	return func(o *encodeOptions) { o.minify = true }
}

func resolveOptions(opts []Option) encodeOptions {
	var o encodeOptions
	for _, apply := range opts {
		apply(&o)
	}
	return o
}
