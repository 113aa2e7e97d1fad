package client

// ErrorClass is the metrics label for a failed source request.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a body that is not a valid page.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassUnexpected represents any other non-2xx status (1xx, 3xx).
	ErrorClassUnexpected ErrorClass = "unexpected"
)

// classifyStatus maps a non-success HTTP status to an error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code >= 400 && code < 500:
		return ErrorClassClient
	case code >= 500:
		return ErrorClassServer
	default:
		return ErrorClassUnexpected
	}
}
