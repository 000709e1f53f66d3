package errors

import "fmt"

// ClassifyHTTPError builds a RemoteError for a non-2xx response.
//   - 4xx client errors (except 408 and 429) are irrecoverable
//   - 5xx server errors are recoverable
func ClassifyHTTPError(operation string, statusCode int, body string, underlyingErr error) *RemoteError {
	return &RemoteError{
		Operation:  operation,
		Category:   getHTTPErrorCategory(statusCode),
		StatusCode: statusCode,
		Body:       body,
		Underlying: underlyingErr,
	}
}

func getHTTPErrorCategory(statusCode int) ErrorCategory {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case 408, 429:
			return Recoverable
		default:
			return Irrecoverable
		}
	case statusCode >= 500 && statusCode < 600:
		return Recoverable
	default:
		// 1xx and 3xx are unexpected from a JSON API; retrying will not change them.
		return Irrecoverable
	}
}

// NewHTTPError creates a classified error for HTTP failures.
func NewHTTPError(operation string, statusCode int, body string) *RemoteError {
	underlyingErr := fmt.Errorf("%s failed: HTTP %d", operation, statusCode)
	return ClassifyHTTPError(operation, statusCode, body, underlyingErr)
}

// NewNetworkError creates a classified error for network-level failures.
// Network errors are always recoverable as they may be transient.
func NewNetworkError(operation string, err error) *RemoteError {
	return &RemoteError{
		Operation:  operation,
		Category:   Recoverable,
		Underlying: fmt.Errorf("%s network error: %w", operation, err),
	}
}

// NewDecodeError reports a 2xx response whose payload could not be decoded.
func NewDecodeError(operation string, statusCode int, body string, err error) *RemoteError {
	return &RemoteError{
		Operation:  operation,
		Category:   Irrecoverable,
		StatusCode: statusCode,
		Body:       body,
		Underlying: fmt.Errorf("%s: decode response: %w", operation, err),
	}
}
