package refresh

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/stretchr/testify/mock"
)

type MockCloud struct {
	mock.Mock
}

func (m *MockCloud) Credentialed() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockCloud) Status(ctx context.Context, deviceId string, maxRetries int, retryDelay time.Duration) (*transport.CloudResponse, error) {
	args := m.Called(ctx, deviceId, maxRetries, retryDelay)

	if resp := args.Get(0); resp != nil {
		return resp.(*transport.CloudResponse), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockCloud) Command(ctx context.Context, deviceId string, command string, parameter string, commandType string) (*transport.CloudResponse, error) {
	args := m.Called(ctx, deviceId, command, parameter, commandType)

	if resp := args.Get(0); resp != nil {
		return resp.(*transport.CloudResponse), args.Error(1)
	}

	return nil, args.Error(1)
}

// countingScanner serves canned scan results and counts invocations.
type countingScanner struct {
	calls  int32
	result func() (*transport.RadioAdvertisement, error)

	// gate, when set, blocks the scan until released.
	gate chan struct{}
	// started signals each scan entry when set.
	started chan struct{}
}

func (s *countingScanner) Scan(ctx context.Context, address string, model string, duration time.Duration) (*transport.RadioAdvertisement, error) {
	atomic.AddInt32(&s.calls, 1)

	if s.started != nil {
		s.started <- struct{}{}
	}

	if s.gate != nil {
		<-s.gate
	}

	return s.result()
}

func (s *countingScanner) count() int32 {
	return atomic.LoadInt32(&s.calls)
}

// countingHost accepts every characteristic update and counts them.
type countingHost struct {
	updates int32
}

func (h *countingHost) UpdateCharacteristic(ctx context.Context, identity state.DeviceIdentity, c state.Capability, value any) error {
	atomic.AddInt32(&h.updates, 1)
	return nil
}

func (h *countingHost) count() int32 {
	return atomic.LoadInt32(&h.updates)
}
