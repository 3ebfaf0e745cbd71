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

func meterIdentity() state.DeviceIdentity {
	return state.DeviceIdentity{
		Id:         "meter1",
		Address:    "aa:bb:cc:dd:ee:ff",
		DeviceType: state.DeviceMeter,
		Model:      "T",
		ModelName:  "WoSensorTH",
		Transports: []state.Transport{state.TransportRadio},
	}
}

func meterDecoder() *MeterDecoder {
	return &MeterDecoder{logger: logwrap.New(discard.Discard())}
}

func TestMeterDecoder_DecodeRadio(t *testing.T) {
	t.Run("matching advertisement decodes battery, humidity and temperature", func(t *testing.T) {
		adv := &transport.RadioAdvertisement{
			Address:   "aa:bb:cc:dd:ee:ff",
			Model:     "T",
			ModelName: "WoSensorTH",
			ServiceData: map[string]any{
				"battery":  45.0,
				"humidity": 60.0,
				"celsius":  22.0,
			},
		}

		s, err := meterDecoder().DecodeRadio(context.Background(), meterIdentity(), adv)
		assert.NoError(t, err)

		battery, _ := s.Get(state.CapabilityBattery)
		assert.Equal(t, 45.0, battery.Value)
		assert.Equal(t, state.TransportRadio, battery.Source)

		humidity, _ := s.Get(state.CapabilityHumidity)
		assert.Equal(t, 60.0, humidity.Value)

		temperature, _ := s.Get(state.CapabilityTemperature)
		assert.Equal(t, 22.0, temperature.Value)

		lowBattery, _ := s.Get(state.CapabilityStatusLowBattery)
		assert.Equal(t, state.LowBatteryNormal, lowBattery.Value)
	})

	t.Run("battery of 5 reports low battery", func(t *testing.T) {
		adv := &transport.RadioAdvertisement{
			Address:     "aa:bb:cc:dd:ee:ff",
			Model:       "T",
			ModelName:   "WoSensorTH",
			ServiceData: map[string]any{"battery": 5.0},
		}

		s, err := meterDecoder().DecodeRadio(context.Background(), meterIdentity(), adv)
		assert.NoError(t, err)

		lowBattery, _ := s.Get(state.CapabilityStatusLowBattery)
		assert.Equal(t, state.LowBatteryLow, lowBattery.Value)
	})

	t.Run("model mismatch is a decode failure", func(t *testing.T) {
		adv := &transport.RadioAdvertisement{
			Address:     "aa:bb:cc:dd:ee:ff",
			Model:       "s",
			ModelName:   "WoPresence",
			ServiceData: map[string]any{"battery": 45.0},
		}

		_, err := meterDecoder().DecodeRadio(context.Background(), meterIdentity(), adv)
		assert.ErrorIs(t, err, transport.ErrDecodeMismatch)
	})

	t.Run("nil advertisement is a decode failure", func(t *testing.T) {
		_, err := meterDecoder().DecodeRadio(context.Background(), meterIdentity(), nil)
		assert.ErrorIs(t, err, transport.ErrDecodeMismatch)
	})

	t.Run("missing battery field leaves the capability absent", func(t *testing.T) {
		adv := &transport.RadioAdvertisement{
			Address:     "aa:bb:cc:dd:ee:ff",
			Model:       "T",
			ModelName:   "WoSensorTH",
			ServiceData: map[string]any{"humidity": 55.0},
		}

		s, err := meterDecoder().DecodeRadio(context.Background(), meterIdentity(), adv)
		assert.NoError(t, err)

		_, found := s.Get(state.CapabilityBattery)
		assert.False(t, found)

		_, found = s.Get(state.CapabilityStatusLowBattery)
		assert.False(t, found)
	})

	t.Run("out of range humidity is clamped, not rejected", func(t *testing.T) {
		adv := &transport.RadioAdvertisement{
			Address:     "aa:bb:cc:dd:ee:ff",
			Model:       "T",
			ModelName:   "WoSensorTH",
			ServiceData: map[string]any{"humidity": 140.0},
		}

		s, err := meterDecoder().DecodeRadio(context.Background(), meterIdentity(), adv)
		assert.NoError(t, err)

		humidity, _ := s.Get(state.CapabilityHumidity)
		assert.Equal(t, 100.0, humidity.Value)
	})

	t.Run("fahrenheit service data converts to celsius", func(t *testing.T) {
		adv := &transport.RadioAdvertisement{
			Address:     "aa:bb:cc:dd:ee:ff",
			Model:       "T",
			ModelName:   "WoSensorTH",
			ServiceData: map[string]any{"fahrenheit": 212.0},
		}

		s, err := meterDecoder().DecodeRadio(context.Background(), meterIdentity(), adv)
		assert.NoError(t, err)

		temperature, _ := s.Get(state.CapabilityTemperature)
		assert.Equal(t, 100.0, temperature.Value)
	})
}

func TestMeterDecoder_DecodeCloud(t *testing.T) {
	t.Run("cloud body decodes with a declared scale", func(t *testing.T) {
		resp := &transport.CloudResponse{
			StatusCode: 100,
			Body:       []byte(`{"temperature":71.6,"scale":"FAHRENHEIT","humidity":40,"battery":80}`),
		}

		s, err := meterDecoder().DecodeCloud(context.Background(), meterIdentity(), resp)
		assert.NoError(t, err)

		temperature, _ := s.Get(state.CapabilityTemperature)
		assert.InDelta(t, 22.0, temperature.Value.(float64), 0.01)

		humidity, _ := s.Get(state.CapabilityHumidity)
		assert.Equal(t, 40.0, humidity.Value)
		assert.Equal(t, state.TransportCloud, humidity.Source)
	})

	t.Run("unknown scale with no override passes the value through", func(t *testing.T) {
		resp := &transport.CloudResponse{
			StatusCode: 100,
			Body:       []byte(`{"temperature":22,"scale":"KELVIN"}`),
		}

		s, err := meterDecoder().DecodeCloud(context.Background(), meterIdentity(), resp)
		assert.NoError(t, err)

		temperature, _ := s.Get(state.CapabilityTemperature)
		assert.Equal(t, 22.0, temperature.Value)
	})

	t.Run("configured override applies when the payload declares no scale", func(t *testing.T) {
		identity := meterIdentity()
		identity.TemperatureUnit = "F"

		resp := &transport.CloudResponse{
			StatusCode: 100,
			Body:       []byte(`{"temperature":32}`),
		}

		s, err := meterDecoder().DecodeCloud(context.Background(), identity, resp)
		assert.NoError(t, err)

		temperature, _ := s.Get(state.CapabilityTemperature)
		assert.Equal(t, 0.0, temperature.Value)
	})

	t.Run("empty body is a decode failure", func(t *testing.T) {
		_, err := meterDecoder().DecodeCloud(context.Background(), meterIdentity(), &transport.CloudResponse{StatusCode: 100})
		assert.ErrorIs(t, err, transport.ErrDecodeMismatch)
	})
}

func TestMeterDecoder_DecodeWebhook(t *testing.T) {
	t.Run("webhook humidity clamps identically to the radio path", func(t *testing.T) {
		ev := &transport.WebhookEvent{
			DeviceId: "meter1",
			Body:     []byte(`{"temperature":22,"scale":"CELSIUS","humidity":999}`),
		}

		s, err := meterDecoder().DecodeWebhook(context.Background(), meterIdentity(), ev)
		assert.NoError(t, err)

		humidity, _ := s.Get(state.CapabilityHumidity)
		assert.Equal(t, 100.0, humidity.Value)
		assert.Equal(t, state.TransportWebhook, humidity.Source)
	})

	t.Run("webhook temperature clamps to physical bounds", func(t *testing.T) {
		ev := &transport.WebhookEvent{
			DeviceId: "meter1",
			Body:     []byte(`{"temperature":-400,"scale":"CELSIUS"}`),
		}

		s, err := meterDecoder().DecodeWebhook(context.Background(), meterIdentity(), ev)
		assert.NoError(t, err)

		temperature, _ := s.Get(state.CapabilityTemperature)
		assert.Equal(t, -273.15, temperature.Value)
	})
}
