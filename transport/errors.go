package transport

type transportError string

func (e transportError) Error() string {
	return string(e)
}

const (
	// ErrUnavailable means a required credential or transport is missing;
	// the refresh cycle aborts without attempting anything.
	ErrUnavailable = transportError("transport unavailable")

	// ErrTimeout means a scan or request exceeded its bound.
	ErrTimeout = transportError("transport timeout")

	// ErrDecodeMismatch means the payload did not match the device it was
	// decoded for (wrong model or cross-talk packet).
	ErrDecodeMismatch = transportError("payload did not match device")
)
