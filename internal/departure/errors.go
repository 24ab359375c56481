package departure

import "fmt"

// UpstreamError represents a failed call to the departure board service
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstreamError creates a new upstream error
func NewUpstreamError(message string, err error) *UpstreamError {
	return &UpstreamError{
		Message: message,
		Err:     err,
	}
}

// ConfigurationError means departures can't be fetched at all, e.g. no access token
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{
		Message: message,
	}
}
