package transport

import (
	"context"
	"time"
)

// RadioAdvertisement is the raw payload produced by a local radio scan. The
// model pair is carried in the advertisement service data and must match the
// declared identity of the device before the payload is accepted.
type RadioAdvertisement struct {
	Address   string
	Model     string
	ModelName string

	// ServiceData holds the decoded advertisement fields, keyed by the
	// field names the radio library exposes (e.g. "battery", "celsius").
	ServiceData map[string]any
}

// CloudResponse is the raw payload of one cloud API request. Body is the
// raw JSON of the response "body" object; StatusCode is the API level
// status carried inside the response, not the HTTP status.
type CloudResponse struct {
	StatusCode  int
	HubDeviceId string
	Body        []byte
}

// WebhookEvent is one inbound push delivered by the cloud's webhook
// dispatcher. Delivery is at least once; handlers must tolerate duplicates.
type WebhookEvent struct {
	DeviceId   string
	Address    string
	DeviceType string

	// Body is the raw JSON of the webhook "context" object.
	Body []byte
}

// Scanner is the local radio scan collaborator. A scan that sees no
// matching advertisement within the configured duration returns (nil, nil):
// an empty result, not an error.
type Scanner interface {
	Scan(ctx context.Context, address string, model string, duration time.Duration) (*RadioAdvertisement, error)
}

// CloudClient is the cloud REST collaborator. Status retries internally up
// to maxRetries with retryDelay between attempts and exhausts before
// returning; Command never retries, callers own command retry policy.
type CloudClient interface {
	Credentialed() bool
	Status(ctx context.Context, deviceId string, maxRetries int, retryDelay time.Duration) (*CloudResponse, error)
	Command(ctx context.Context, deviceId string, command string, parameter string, commandType string) (*CloudResponse, error)
}
