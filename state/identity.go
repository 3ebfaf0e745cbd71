package state

import "time"

// DeviceType selects the decoder set and capability surface for a device.
type DeviceType string

const (
	DeviceMeter  DeviceType = "meter"
	DeviceMotion DeviceType = "motion"
	DevicePlug   DeviceType = "plug"
)

// DeviceIdentity is the immutable registration record for one physical
// device. Created once at registration and never mutated afterwards.
type DeviceIdentity struct {
	Id         string
	Address    string
	DeviceType DeviceType

	// Model is the single character model code carried in radio service
	// data, ModelName the human readable form. Both must match an
	// incoming advertisement before it is accepted.
	Model     string
	ModelName string

	Transports []Transport

	RefreshInterval time.Duration
	ScanDuration    time.Duration
	MaxRetries      int
	RetryDelay      time.Duration

	// TemperatureUnit overrides the payload scale when a payload does not
	// declare one, "C" or "F". Empty means trust the payload.
	TemperatureUnit string

	// Hide lists capabilities which must never be published to the host,
	// even if the hardware reports them.
	Hide []Capability

	// OfflineNeutral marks a device as intentionally offline: when no
	// transport is usable, a documented neutral placeholder is published
	// per capability instead of leaving stale values on display.
	OfflineNeutral bool
}

func (d DeviceIdentity) TransportEnabled(t Transport) bool {
	for _, enabled := range d.Transports {
		if enabled == t {
			return true
		}
	}

	return false
}

func (d DeviceIdentity) Hidden(c Capability) bool {
	for _, hidden := range d.Hide {
		if hidden == c {
			return true
		}
	}

	return false
}
