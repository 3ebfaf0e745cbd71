package decoder

import (
	"context"
	"testing"

	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
)

func plugIdentity() state.DeviceIdentity {
	return state.DeviceIdentity{
		Id:         "plug1",
		DeviceType: state.DevicePlug,
		Model:      "g",
		ModelName:  "WoPlug",
	}
}

func plugDecoder() *PlugDecoder {
	return &PlugDecoder{logger: logwrap.New(discard.Discard())}
}

func TestPlugDecoder(t *testing.T) {
	t.Run("cloud power state decodes lowercased", func(t *testing.T) {
		resp := &transport.CloudResponse{StatusCode: 100, Body: []byte(`{"power":"ON"}`)}

		s, err := plugDecoder().DecodeCloud(context.Background(), plugIdentity(), resp)
		assert.NoError(t, err)

		power, _ := s.Get(state.CapabilityPower)
		assert.Equal(t, "on", power.Value)
	})

	t.Run("webhook power state decodes identically", func(t *testing.T) {
		ev := &transport.WebhookEvent{DeviceId: "plug1", Body: []byte(`{"power":"off"}`)}

		s, err := plugDecoder().DecodeWebhook(context.Background(), plugIdentity(), ev)
		assert.NoError(t, err)

		power, _ := s.Get(state.CapabilityPower)
		assert.Equal(t, "off", power.Value)
	})

	t.Run("radio power flag decodes to the same representation", func(t *testing.T) {
		adv := &transport.RadioAdvertisement{
			Model:       "g",
			ModelName:   "WoPlug",
			ServiceData: map[string]any{"power": true},
		}

		s, err := plugDecoder().DecodeRadio(context.Background(), plugIdentity(), adv)
		assert.NoError(t, err)

		power, _ := s.Get(state.CapabilityPower)
		assert.Equal(t, "on", power.Value)
	})
}
