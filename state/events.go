package state

// CapabilityChanged is published on the event bus after a capability value
// has been successfully pushed to the host platform.
type CapabilityChanged struct {
	Identity   DeviceIdentity
	Capability Capability
	Value      any
	Source     Transport
}

// DeviceOffline is published when a refresh cycle determined the device is
// unreachable (remote reports offline, or all transports failed).
type DeviceOffline struct {
	Identity DeviceIdentity
	Reason   string
}

// DeviceRegistered and DeviceRemoved mark registry lifecycle changes.
type DeviceRegistered struct {
	Identity DeviceIdentity
}

type DeviceRemoved struct {
	Identity DeviceIdentity
}
