package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingTarget   = errors.New("missing target url")
	ErrUpstream        = errors.New("upstream error")
	ErrNetwork         = errors.New("network error")
	ErrStreamParse     = errors.New("stream parse error")
	ErrCancelled       = errors.New("stopped by user")
)

// ConfigurationError reports a required field missing before any network call.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// Is matches ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnknownProviderError reports a provider id outside the enumerated set.
type UnknownProviderError struct {
	Provider string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %q", e.Provider)
}

// Is matches ErrUnknownProvider.
func (e *UnknownProviderError) Is(target error) bool {
	return target == ErrUnknownProvider
}

// UpstreamError carries a non-2xx provider response verbatim.
type UpstreamError struct {
	Status      int
	ContentType string
	Body        []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, string(e.Body))
}

// Is matches ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// NetworkError reports a call that never reached the upstream.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is matches ErrNetwork.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// StreamParseError reports a single malformed stream event.
type StreamParseError struct {
	Payload string
	Err     error
}

func (e *StreamParseError) Error() string {
	return fmt.Sprintf("malformed stream event %q: %v", e.Payload, e.Err)
}

func (e *StreamParseError) Unwrap() error {
	return e.Err
}

// Is matches ErrStreamParse.
func (e *StreamParseError) Is(target error) bool {
	return target == ErrStreamParse
}
