package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus(t *testing.T) {
	t.Run("subscribing to the bus results in published events being received", func(t *testing.T) {
		listenCh := make(chan interface{}, 1)
		expectedEvent := struct{}{}

		eb := NewEventBus()
		eb.Subscribe(listenCh)
		eb.Publish(expectedEvent)

		select {
		case actualEvent := <-listenCh:
			assert.Equal(t, expectedEvent, actualEvent)
		default:
			assert.Fail(t, "no event received")
		}
	})

	t.Run("unsubscribed channels no longer receive events", func(t *testing.T) {
		listenCh := make(chan interface{}, 1)

		eb := NewEventBus()
		eb.Subscribe(listenCh)
		eb.Unsubscribe(listenCh)
		eb.Publish(struct{}{})

		select {
		case <-listenCh:
			assert.Fail(t, "event received after unsubscribe")
		default:
		}
	})

	t.Run("a full subscriber channel does not block publishing", func(t *testing.T) {
		listenCh := make(chan interface{})

		eb := NewEventBus()
		eb.Subscribe(listenCh)

		eb.Publish(struct{}{})
	})
}
