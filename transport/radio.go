package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shimmeringbee/logwrap"
)

var _ Scanner = (*SerialScanner)(nil)

// SerialScanner serializes access to a shared single-channel radio: only
// one scan may be active system-wide, regardless of how many devices use
// the radio transport. The scan duration is a hard bound; expiry without a
// matching advertisement is an empty result, not a failure.
type SerialScanner struct {
	lock    sync.Mutex
	scanner Scanner
	logger  logwrap.Logger
}

func NewSerialScanner(scanner Scanner, l logwrap.Logger) *SerialScanner {
	return &SerialScanner{
		scanner: scanner,
		logger:  l,
	}
}

func (s *SerialScanner) Scan(ctx context.Context, address string, model string, duration time.Duration) (*RadioAdvertisement, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	scanCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	adv, err := s.scanner.Scan(scanCtx, address, model, duration)

	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.LogDebug(ctx, "Scan duration elapsed without a matching advertisement.", logwrap.Datum("address", address))
		return nil, nil
	}

	return adv, err
}
