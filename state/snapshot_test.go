package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_Merge(t *testing.T) {
	t.Run("capabilities absent from the update keep their prior reading", func(t *testing.T) {
		at := time.Now()

		s := Snapshot{
			CapabilityBattery:  {Value: 45.0, Source: TransportRadio, At: at},
			CapabilityHumidity: {Value: 60.0, Source: TransportRadio, At: at},
		}

		update := Snapshot{
			CapabilityHumidity: {Value: 61.0, Source: TransportCloud, At: at},
		}

		merged := s.Merge(update)

		battery, found := merged.Get(CapabilityBattery)
		assert.True(t, found)
		assert.Equal(t, 45.0, battery.Value)

		humidity, found := merged.Get(CapabilityHumidity)
		assert.True(t, found)
		assert.Equal(t, 61.0, humidity.Value)
		assert.Equal(t, TransportCloud, humidity.Source)
	})

	t.Run("merge does not mutate the receiver", func(t *testing.T) {
		s := Snapshot{
			CapabilityBattery: {Value: 45.0},
		}

		_ = s.Merge(Snapshot{
			CapabilityBattery: {Value: 12.0},
		})

		battery, _ := s.Get(CapabilityBattery)
		assert.Equal(t, 45.0, battery.Value)
	})

	t.Run("merging nil produces an equal copy", func(t *testing.T) {
		s := Snapshot{
			CapabilityMotion: {Value: true},
		}

		merged := s.Merge(nil)
		assert.Equal(t, s, merged)
	})
}
