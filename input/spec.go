package input

import (
	"strings"

	"github.com/c360/audiostreams/config"
	"github.com/c360/audiostreams/errors"
	"github.com/c360/audiostreams/pcm"
)

// SourceSpec is a parsed capture source URI of the form
//
//	<scheme>://[device][?format=rate:bits:channels]
//
// Scheme validity and spec validity are separate: a URI whose scheme
// does not match the plugin's prefix is simply not for that plugin,
// while a matching scheme with a bad format string is a loud
// configuration error.
type SourceSpec struct {
	URI          string
	Device       string
	FormatString string
	Format       pcm.Format

	schemeOK bool
	parseErr error
}

// ParseSourceSpec splits uri against the plugin prefix and fills in
// defaults from cfg for the device and format. Prefix matching is
// case-insensitive. A query string must carry a format= parameter;
// anything else invalidates the spec without invalidating the scheme.
func ParseSourceSpec(uri, prefix string, cfg config.InputConfig) SourceSpec {
	spec := SourceSpec{URI: uri}

	head, query, hasQuery := strings.Cut(uri, "?")
	if len(head) < len(prefix) || !strings.EqualFold(head[:len(prefix)], prefix) {
		return spec
	}
	spec.schemeOK = true
	spec.Device = head[len(prefix):]
	if spec.Device == "" {
		spec.Device = cfg.DefaultDevice
	}

	if hasQuery {
		spec.FormatString = formatParam(query)
		if spec.FormatString == "" {
			spec.parseErr = errors.WrapInvalid(errors.ErrInvalidSpec,
				"input", "ParseSourceSpec", "query string carries no format parameter")
			return spec
		}
	} else {
		spec.FormatString = cfg.DefaultFormat
	}

	format, err := pcm.ParseFormat(spec.FormatString)
	if err != nil {
		spec.parseErr = errors.WrapInvalid(err, "input", "ParseSourceSpec", "parse capture format")
		return spec
	}
	spec.Format = format
	return spec
}

// formatParam extracts the value of the format= query parameter,
// matching the key case-insensitively.
func formatParam(query string) string {
	for _, pair := range strings.Split(query, "&") {
		key, value, ok := strings.Cut(pair, "=")
		if ok && strings.EqualFold(key, "format") {
			return value
		}
	}
	return ""
}

// SchemeValid reports whether the URI matched the plugin prefix. A
// false result means the URI belongs to some other plugin.
func (s SourceSpec) SchemeValid() bool { return s.schemeOK }

// Validate returns the configuration error that makes a scheme-valid
// spec unusable, or nil when the spec is complete.
func (s SourceSpec) Validate() error {
	if !s.schemeOK {
		return errors.WrapInvalid(errors.ErrInvalidSpec, "input", "Validate", "scheme mismatch")
	}
	return s.parseErr
}
