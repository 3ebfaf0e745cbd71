package decoder

import (
	"context"
	"fmt"

	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/shimmeringbee/logwrap"
	"github.com/tidwall/gjson"
)

var _ Decoder = (*PlugDecoder)(nil)

// PlugDecoder decodes mains powered plugs. Plugs report their power state
// over cloud and webhook; their advertisements carry a power flag only.
type PlugDecoder struct {
	logger logwrap.Logger
}

func (d *PlugDecoder) DeviceType() state.DeviceType {
	return state.DevicePlug
}

func (d *PlugDecoder) Capabilities() []state.Capability {
	return []state.Capability{
		state.CapabilityPower,
	}
}

func (d *PlugDecoder) DecodeRadio(ctx context.Context, identity state.DeviceIdentity, adv *transport.RadioAdvertisement) (state.Snapshot, error) {
	if err := verifyModel(identity, adv); err != nil {
		return nil, err
	}

	p := newPartial(state.TransportRadio)

	if power, found := boolField(adv.ServiceData, "power"); found {
		p.set(state.CapabilityPower, powerState(power))
	}

	return p.snapshot, nil
}

func (d *PlugDecoder) DecodeCloud(ctx context.Context, identity state.DeviceIdentity, resp *transport.CloudResponse) (state.Snapshot, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("%w: empty cloud body", transport.ErrDecodeMismatch)
	}

	return d.decodeBody(state.TransportCloud, resp.Body), nil
}

func (d *PlugDecoder) DecodeWebhook(ctx context.Context, identity state.DeviceIdentity, ev *transport.WebhookEvent) (state.Snapshot, error) {
	if ev == nil || ev.Body == nil {
		return nil, fmt.Errorf("%w: empty webhook context", transport.ErrDecodeMismatch)
	}

	return d.decodeBody(state.TransportWebhook, ev.Body), nil
}

func (d *PlugDecoder) decodeBody(source state.Transport, body []byte) state.Snapshot {
	p := newPartial(source)

	if power := gjson.GetBytes(body, "power"); power.Exists() {
		p.set(state.CapabilityPower, normalisePower(power.String()))
	}

	return p.snapshot
}

func powerState(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// normalisePower lowercases the cloud's power report, which differs in
// case between the status and webhook surfaces ("on" vs "ON").
func normalisePower(power string) string {
	switch power {
	case "on", "ON":
		return "on"
	default:
		return "off"
	}
}
