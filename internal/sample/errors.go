package sample

import "errors"

// Reasons a payload is discarded. Use errors.Is() to tell them apart.
var (
	// ErrDecode indicates the payload is not valid UTF-8.
	ErrDecode = errors.New("sample: payload is not valid UTF-8")

	// ErrJSONPayload indicates a structured payload, which this bridge ignores.
	ErrJSONPayload = errors.New("sample: structured payload")

	// ErrParse indicates text that is neither a boolean word nor a finite number.
	ErrParse = errors.New("sample: payload is not numeric")
)

// Discard reason labels, as used in metrics.
const (
	ReasonDecode = "decode_error"
	ReasonJSON   = "json_payload"
	ReasonParse  = "parse_error"
	ReasonOther  = "other"
)

// DiscardReason maps a Normalize error to a short label.
func DiscardReason(err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return ReasonDecode
	case errors.Is(err, ErrJSONPayload):
		return ReasonJSON
	case errors.Is(err, ErrParse):
		return ReasonParse
	default:
		return ReasonOther
	}
}
