package generate

// Kind classifies why a generation round failed.
type Kind string

const (
	// KindModel is a transport or provider failure; no partial document
	// is kept.
	KindModel Kind = "model"
	// KindParse means the sanitized response was not valid JSON; the raw
	// text is retained for display.
	KindParse Kind = "parse"
	// KindValidate means the parsed JSON lacked the required shape; the
	// raw text is retained for display.
	KindValidate Kind = "validation"
	// KindInternal is any other failure inside the round.
	KindInternal Kind = "internal"
)

// RoundError is surfaced to the caller when a round fails. RawText carries
// the unmodified model response for parse and validation failures so it can
// be shown (truncated) for debugging.
type RoundError struct {
	Kind    Kind
	RawText string
	Err     error
}

func (e *RoundError) Error() string {
	switch e.Kind {
	case KindModel:
		return "Model error: " + e.Err.Error()
	case KindParse:
		return "Parse error: " + e.Err.Error()
	case KindValidate:
		return "Validation error: " + e.Err.Error()
	default:
		return "Generation error: " + e.Err.Error()
	}
}

func (e *RoundError) Unwrap() error { return e.Err }
