package decoder

import (
	"context"
	"fmt"
	"time"

	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/shimmeringbee/logwrap"
)

// Decoder turns a raw transport payload into a partial snapshot for one
// device type. Decoders never fail on out-of-range but well-typed input;
// values are clamped to their physical bounds and a warning logged. A
// capability absent from the payload is absent from the returned snapshot,
// leaving the previously known value intact when merged.
type Decoder interface {
	DeviceType() state.DeviceType
	Capabilities() []state.Capability

	DecodeRadio(ctx context.Context, identity state.DeviceIdentity, adv *transport.RadioAdvertisement) (state.Snapshot, error)
	DecodeCloud(ctx context.Context, identity state.DeviceIdentity, resp *transport.CloudResponse) (state.Snapshot, error)
	DecodeWebhook(ctx context.Context, identity state.DeviceIdentity, ev *transport.WebhookEvent) (state.Snapshot, error)
}

// ForDevice returns the decoder for a device type.
func ForDevice(t state.DeviceType, l logwrap.Logger) (Decoder, bool) {
	switch t {
	case state.DeviceMeter:
		return &MeterDecoder{logger: l}, true
	case state.DeviceMotion:
		return &MotionDecoder{logger: l}, true
	case state.DevicePlug:
		return &PlugDecoder{logger: l}, true
	default:
		return nil, false
	}
}

type bounds struct {
	min float64
	max float64
}

var capabilityBounds = map[state.Capability]bounds{
	state.CapabilityBattery:     {0, 100},
	state.CapabilityHumidity:    {0, 100},
	state.CapabilityTemperature: {-273.15, 100},
}

// clamp forces v into the declared physical bounds for c, logging a warning
// when the payload carried an out-of-range value. Capabilities without
// declared bounds pass through untouched.
func clamp(ctx context.Context, l logwrap.Logger, c state.Capability, v float64) float64 {
	b, found := capabilityBounds[c]
	if !found {
		return v
	}

	clamped := v
	if clamped < b.min {
		clamped = b.min
	} else if clamped > b.max {
		clamped = b.max
	}

	if clamped != v {
		l.LogWarn(ctx, "Payload value outside physical bounds, clamping.", logwrap.Datum("capability", string(c)), logwrap.Datum("value", v), logwrap.Datum("clamped", clamped))
	}

	return clamped
}

// scaleToCelsius converts a temperature to the canonical celsius scale.
// Conversion is table driven on the payload's declared scale.
var scaleToCelsius = map[string]func(float64) float64{
	"C":          func(v float64) float64 { return v },
	"CELSIUS":    func(v float64) float64 { return v },
	"F":          func(v float64) float64 { return (v - 32) * 5 / 9 },
	"FAHRENHEIT": func(v float64) float64 { return (v - 32) * 5 / 9 },
}

// convertTemperature applies the scale declared by the payload, or the
// configured override when the payload declares none. An unknown scale with
// no override is a configuration warning, not a failure; the value passes
// through unconverted.
func convertTemperature(ctx context.Context, l logwrap.Logger, identity state.DeviceIdentity, v float64, scale string) float64 {
	if scale == "" {
		scale = identity.TemperatureUnit
	}

	if convert, found := scaleToCelsius[scale]; found {
		return convert(v)
	}

	l.LogWarn(ctx, "Unknown temperature scale and no configured override, passing value through.", logwrap.Datum("device", identity.Id), logwrap.Datum("scale", scale))
	return v
}

// verifyModel rejects advertisements whose model pair does not match the
// declared identity: a cross-talk packet or wrong device.
func verifyModel(identity state.DeviceIdentity, adv *transport.RadioAdvertisement) error {
	if adv == nil {
		return fmt.Errorf("%w: no advertisement", transport.ErrDecodeMismatch)
	}

	if adv.Model != identity.Model || adv.ModelName != identity.ModelName {
		return fmt.Errorf("%w: advertisement model %s/%s, declared %s/%s", transport.ErrDecodeMismatch, adv.Model, adv.ModelName, identity.Model, identity.ModelName)
	}

	return nil
}

// partial accumulates decoded readings with a common source and timestamp.
type partial struct {
	snapshot state.Snapshot
	source   state.Transport
	at       time.Time
}

func newPartial(source state.Transport) *partial {
	return &partial{
		snapshot: state.NewSnapshot(),
		source:   source,
		at:       time.Now(),
	}
}

func (p *partial) set(c state.Capability, v any) {
	p.snapshot[c] = state.Reading{Value: v, Source: p.source, At: p.at}
}

// setBattery records a clamped battery level and the derived low battery
// status.
func (p *partial) setBattery(ctx context.Context, l logwrap.Logger, v float64) {
	level := clamp(ctx, l, state.CapabilityBattery, v)

	p.set(state.CapabilityBattery, level)

	if level < state.LowBatteryThreshold {
		p.set(state.CapabilityStatusLowBattery, state.LowBatteryLow)
	} else {
		p.set(state.CapabilityStatusLowBattery, state.LowBatteryNormal)
	}
}

// numberField reads a numeric service data field, tolerating the integer
// and float representations radio libraries produce.
func numberField(serviceData map[string]any, key string) (float64, bool) {
	raw, found := serviceData[key]
	if !found {
		return 0, false
	}

	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case byte:
		return float64(v), true
	default:
		return 0, false
	}
}

func boolField(serviceData map[string]any, key string) (bool, bool) {
	raw, found := serviceData[key]
	if !found {
		return false, false
	}

	v, ok := raw.(bool)
	return v, ok
}
