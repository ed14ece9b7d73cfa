package image

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownProfile is returned when a model profile name is not registered.
var ErrUnknownProfile = errors.New("unknown model profile")

// ProviderError is a transport or provider-side failure. Its message is the
// human readable text recorded on the failed job.
type ProviderError struct {
	Op      string
	Model   string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(op, model string, err error) *ProviderError {
	return &ProviderError{Op: op, Model: model, Message: err.Error(), Err: err}
}

// ResponseFormatError means the provider answered with a payload matching
// none of the recognised result shapes.
type ResponseFormatError struct {
	Reason string
	Keys   []string
}

func (e *ResponseFormatError) Error() string {
	msg := "unexpected response format from provider: " + e.Reason
	if len(e.Keys) > 0 {
		keys := append([]string(nil), e.Keys...)
		sort.Strings(keys)
		msg += fmt.Sprintf(" (keys: %s)", strings.Join(keys, ", "))
	}
	return msg
}
