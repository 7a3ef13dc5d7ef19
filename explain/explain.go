// Package explain turns raw UDS responses into human readable explanations
// using an external language model.
package explain

import (
	"context"

	"github.com/pkg/errors"
)

// Explainer explains a raw response, e.g. "7F 23 31". The detail is free
// text describing what the caller was doing when the response came back.
type Explainer interface {
	Explain(ctx context.Context, rawHex, detail string) (string, error)
}

// ErrNoExplainer is reported when no explainer has been configured.
var ErrNoExplainer = errors.New("no explainer configured")

// Describe always returns text: the explanation, or a note on why there isn't one.
func Describe(ctx context.Context, e Explainer, rawHex, detail string) string {
	if e == nil {
		return Unavailable(ErrNoExplainer)
	}

	text, err := e.Explain(ctx, rawHex, detail)
	if err != nil {
		return Unavailable(err)
	}
	return text
}

// Unavailable formats the text shown in place of an explanation.
func Unavailable(err error) string {
	return "Explanation unavailable: " + err.Error()
}
