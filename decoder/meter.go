package decoder

import (
	"context"
	"fmt"

	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/shimmeringbee/logwrap"
	"github.com/tidwall/gjson"
)

var _ Decoder = (*MeterDecoder)(nil)

// MeterDecoder decodes temperature/humidity meters. Radio advertisements
// carry celsius/humidity/battery service data fields; cloud and webhook
// payloads carry a temperature with an optional declared scale.
type MeterDecoder struct {
	logger logwrap.Logger
}

func (d *MeterDecoder) DeviceType() state.DeviceType {
	return state.DeviceMeter
}

func (d *MeterDecoder) Capabilities() []state.Capability {
	return []state.Capability{
		state.CapabilityTemperature,
		state.CapabilityHumidity,
		state.CapabilityBattery,
		state.CapabilityStatusLowBattery,
	}
}

func (d *MeterDecoder) DecodeRadio(ctx context.Context, identity state.DeviceIdentity, adv *transport.RadioAdvertisement) (state.Snapshot, error) {
	if err := verifyModel(identity, adv); err != nil {
		return nil, err
	}

	p := newPartial(state.TransportRadio)

	if celsius, found := numberField(adv.ServiceData, "celsius"); found {
		p.set(state.CapabilityTemperature, clamp(ctx, d.logger, state.CapabilityTemperature, celsius))
	} else if fahrenheit, found := numberField(adv.ServiceData, "fahrenheit"); found {
		converted := convertTemperature(ctx, d.logger, identity, fahrenheit, "F")
		p.set(state.CapabilityTemperature, clamp(ctx, d.logger, state.CapabilityTemperature, converted))
	}

	if humidity, found := numberField(adv.ServiceData, "humidity"); found {
		p.set(state.CapabilityHumidity, clamp(ctx, d.logger, state.CapabilityHumidity, humidity))
	}

	if battery, found := numberField(adv.ServiceData, "battery"); found {
		p.setBattery(ctx, d.logger, battery)
	}

	return p.snapshot, nil
}

func (d *MeterDecoder) DecodeCloud(ctx context.Context, identity state.DeviceIdentity, resp *transport.CloudResponse) (state.Snapshot, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("%w: empty cloud body", transport.ErrDecodeMismatch)
	}

	return d.decodeBody(ctx, identity, state.TransportCloud, resp.Body), nil
}

func (d *MeterDecoder) DecodeWebhook(ctx context.Context, identity state.DeviceIdentity, ev *transport.WebhookEvent) (state.Snapshot, error) {
	if ev == nil || ev.Body == nil {
		return nil, fmt.Errorf("%w: empty webhook context", transport.ErrDecodeMismatch)
	}

	return d.decodeBody(ctx, identity, state.TransportWebhook, ev.Body), nil
}

// decodeBody handles the cloud and webhook JSON bodies, which share field
// names. Clamping is applied identically on every transport.
func (d *MeterDecoder) decodeBody(ctx context.Context, identity state.DeviceIdentity, source state.Transport, body []byte) state.Snapshot {
	p := newPartial(source)

	if temperature := gjson.GetBytes(body, "temperature"); temperature.Exists() {
		scale := gjson.GetBytes(body, "scale").String()
		converted := convertTemperature(ctx, d.logger, identity, temperature.Float(), scale)
		p.set(state.CapabilityTemperature, clamp(ctx, d.logger, state.CapabilityTemperature, converted))
	}

	if humidity := gjson.GetBytes(body, "humidity"); humidity.Exists() {
		p.set(state.CapabilityHumidity, clamp(ctx, d.logger, state.CapabilityHumidity, humidity.Float()))
	}

	if battery := gjson.GetBytes(body, "battery"); battery.Exists() {
		p.setBattery(ctx, d.logger, battery.Float())
	}

	return p.snapshot
}
