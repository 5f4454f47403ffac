package shuttle

import "fmt"

// Codec selects how an event body is serialized.
type Codec int

const (
	CodecJSON Codec = iota
	CodecText
)

// ParseCodec maps the config value to a Codec.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "json":
		return CodecJSON, nil
	case "text":
		return CodecText, nil
	}
	return 0, fmt.Errorf("Unknown codec: %s", s)
}

// EncodingConfig selects the body codec and an optional field filter.
// OnlyFields keeps the listed fields, ExceptFields removes them; setting
// both is a configuration error. An EncodingConfig is immutable once built
// and shared read-only across all encode calls.
type EncodingConfig struct {
	Codec        Codec
	OnlyFields   []string
	ExceptFields []string
}

// Validate checks the filter lists for mutual exclusion.
func (ec *EncodingConfig) Validate() error {
	if len(ec.OnlyFields) > 0 && len(ec.ExceptFields) > 0 {
		return fmt.Errorf("only_fields and except_fields are mutually exclusive")
	}
	return nil
}

// ApplyRules applies the field filter to the event in place. It runs before
// body serialization so excluded fields never reach either codec.
func (ec *EncodingConfig) ApplyRules(ev *LogEvent) {
	switch {
	case len(ec.OnlyFields) > 0:
		keep := make(map[string]bool, len(ec.OnlyFields))
		for _, f := range ec.OnlyFields {
			keep[f] = true
		}
		for _, k := range ev.Fields() {
			if !keep[k] {
				ev.Remove(k)
			}
		}
	case len(ec.ExceptFields) > 0:
		for _, f := range ec.ExceptFields {
			ev.Remove(f)
		}
	}
}
