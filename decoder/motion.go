package decoder

import (
	"context"
	"fmt"

	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/shimmeringbee/logwrap"
	"github.com/tidwall/gjson"
)

var _ Decoder = (*MotionDecoder)(nil)

// MotionDecoder decodes motion sensors. The cloud reports moveDetected,
// webhook pushes report a detectionState string, radio advertisements a
// motion flag plus an ambient light level.
type MotionDecoder struct {
	logger logwrap.Logger
}

func (d *MotionDecoder) DeviceType() state.DeviceType {
	return state.DeviceMotion
}

func (d *MotionDecoder) Capabilities() []state.Capability {
	return []state.Capability{
		state.CapabilityMotion,
		state.CapabilityLight,
		state.CapabilityBattery,
		state.CapabilityStatusLowBattery,
	}
}

func (d *MotionDecoder) DecodeRadio(ctx context.Context, identity state.DeviceIdentity, adv *transport.RadioAdvertisement) (state.Snapshot, error) {
	if err := verifyModel(identity, adv); err != nil {
		return nil, err
	}

	p := newPartial(state.TransportRadio)

	if motion, found := boolField(adv.ServiceData, "motion"); found {
		p.set(state.CapabilityMotion, motion)
	}

	if light, found := numberField(adv.ServiceData, "lightLevel"); found {
		p.set(state.CapabilityLight, light)
	}

	if battery, found := numberField(adv.ServiceData, "battery"); found {
		p.setBattery(ctx, d.logger, battery)
	}

	return p.snapshot, nil
}

func (d *MotionDecoder) DecodeCloud(ctx context.Context, identity state.DeviceIdentity, resp *transport.CloudResponse) (state.Snapshot, error) {
	if resp == nil || resp.Body == nil {
		return nil, fmt.Errorf("%w: empty cloud body", transport.ErrDecodeMismatch)
	}

	p := newPartial(state.TransportCloud)

	if moveDetected := gjson.GetBytes(resp.Body, "moveDetected"); moveDetected.Exists() {
		p.set(state.CapabilityMotion, moveDetected.Bool())
	}

	if brightness := gjson.GetBytes(resp.Body, "brightness"); brightness.Exists() {
		p.set(state.CapabilityLight, brightnessLevel(brightness.String()))
	}

	if battery := gjson.GetBytes(resp.Body, "battery"); battery.Exists() {
		p.setBattery(ctx, d.logger, battery.Float())
	}

	return p.snapshot, nil
}

func (d *MotionDecoder) DecodeWebhook(ctx context.Context, identity state.DeviceIdentity, ev *transport.WebhookEvent) (state.Snapshot, error) {
	if ev == nil || ev.Body == nil {
		return nil, fmt.Errorf("%w: empty webhook context", transport.ErrDecodeMismatch)
	}

	p := newPartial(state.TransportWebhook)

	if detectionState := gjson.GetBytes(ev.Body, "detectionState"); detectionState.Exists() {
		p.set(state.CapabilityMotion, detectionState.String() == "DETECTED")
	}

	if battery := gjson.GetBytes(ev.Body, "battery"); battery.Exists() {
		p.setBattery(ctx, d.logger, battery.Float())
	}

	return p.snapshot, nil
}

// brightnessLevel maps the cloud's coarse brightness report onto the light
// level scale the radio reports natively.
func brightnessLevel(brightness string) float64 {
	switch brightness {
	case "bright":
		return 100
	default:
		return 0
	}
}
