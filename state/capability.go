package state

import "time"

// Capability names a single typed device attribute exposed to the host
// platform. The value type per capability is fixed: battery, temperature,
// humidity, light and statusLowBattery are float64, motion is bool and
// power is string ("on"/"off").
type Capability string

const (
	CapabilityBattery          Capability = "battery"
	CapabilityStatusLowBattery Capability = "statusLowBattery"
	CapabilityTemperature      Capability = "temperature"
	CapabilityHumidity         Capability = "humidity"
	CapabilityMotion           Capability = "motion"
	CapabilityLight            Capability = "light"
	CapabilityPower            Capability = "power"
)

const (
	LowBatteryNormal float64 = 0
	LowBatteryLow    float64 = 1
)

// LowBatteryThreshold is the battery percentage below which
// statusLowBattery reports LowBatteryLow.
const LowBatteryThreshold float64 = 10

type Transport string

const (
	TransportRadio   Transport = "radio"
	TransportCloud   Transport = "cloud"
	TransportWebhook Transport = "webhook"
)

// Reading is one capability sample: the decoded value, the transport which
// produced it and when it was decoded.
type Reading struct {
	Value  any
	Source Transport
	At     time.Time
}
