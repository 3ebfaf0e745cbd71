package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
)

type stubScanner struct {
	scan func(ctx context.Context, address string, model string, duration time.Duration) (*RadioAdvertisement, error)
}

func (s stubScanner) Scan(ctx context.Context, address string, model string, duration time.Duration) (*RadioAdvertisement, error) {
	return s.scan(ctx, address, model, duration)
}

func TestSerialScanner(t *testing.T) {
	t.Run("a matching advertisement is returned", func(t *testing.T) {
		expected := &RadioAdvertisement{Address: "aa:bb", Model: "T"}

		s := NewSerialScanner(stubScanner{
			scan: func(ctx context.Context, address string, model string, duration time.Duration) (*RadioAdvertisement, error) {
				return expected, nil
			},
		}, logwrap.New(discard.Discard()))

		adv, err := s.Scan(context.Background(), "aa:bb", "T", time.Second)
		assert.NoError(t, err)
		assert.Equal(t, expected, adv)
	})

	t.Run("scan duration expiry is an empty result, not an error", func(t *testing.T) {
		s := NewSerialScanner(stubScanner{
			scan: func(ctx context.Context, address string, model string, duration time.Duration) (*RadioAdvertisement, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}, logwrap.New(discard.Discard()))

		adv, err := s.Scan(context.Background(), "aa:bb", "T", 10*time.Millisecond)
		assert.NoError(t, err)
		assert.Nil(t, adv)
	})

	t.Run("scans for different devices never overlap", func(t *testing.T) {
		var active int32
		var overlapped int32

		s := NewSerialScanner(stubScanner{
			scan: func(ctx context.Context, address string, model string, duration time.Duration) (*RadioAdvertisement, error) {
				if atomic.AddInt32(&active, 1) > 1 {
					atomic.StoreInt32(&overlapped, 1)
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil, nil
			},
		}, logwrap.New(discard.Discard()))

		var wg sync.WaitGroup

		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.Scan(context.Background(), "aa:bb", "T", time.Second)
			}()
		}

		wg.Wait()
		assert.Equal(t, int32(0), atomic.LoadInt32(&overlapped))
	})
}
