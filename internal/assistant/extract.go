package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

type Shape int

const (
	ShapeArray Shape = iota
	ShapeObject
)

var (
	arrayPattern  = regexp.MustCompile(`\[[\s\S]*\]`)
	objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

// Extract returns the outermost bracketed region of the expected shape.
// Models tend to wrap JSON in prose, so everything outside the first opening
// and last closing bracket is dropped.
func Extract(text string, shape Shape) (string, error) {
	pattern := arrayPattern
	if shape == ShapeObject {
		pattern = objectPattern
	}
	match := pattern.FindString(text)
	if match == "" {
		return "", ErrNoJSONFound
	}
	return match, nil
}

func Parse[T any](text string, shape Shape) (T, error) {
	var value T
	match, err := Extract(text, shape)
	if err != nil {
		return value, err
	}
	if err := json.Unmarshal([]byte(match), &value); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return value, nil
}

// SuggestStructured completes prompt and parses the JSON embedded in the reply.
func SuggestStructured[T any](ctx context.Context, completer Completer, prompt string, shape Shape) (T, error) {
	text, err := completer.Complete(ctx, prompt)
	if err != nil {
		var zero T
		return zero, err
	}
	return Parse[T](text, shape)
}
