package config

import (
	"fmt"
	"time"

	"github.com/Loodyy/homebridge-switchbot/state"
)

const (
	DefaultRefreshInterval = 120 * time.Second
	DefaultScanDuration    = 5 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryDelay      = 2 * time.Second
)

// DeviceConfig is one device registration file. Durations are seconds
// except RetryDelay, which is milliseconds.
type DeviceConfig struct {
	Name string `json:"-"`

	Type      string
	Id        string
	Address   string
	Model     string
	ModelName string

	Transports []string

	RefreshInterval int
	ScanDuration    int
	MaxRetries      int
	RetryDelay      int

	TemperatureUnit string
	Hide            []string
	OfflineNeutral  bool
}

// Identity validates the configuration and produces the immutable device
// identity, applying defaults for unset tunables. An empty transport list
// is legal: the device becomes a deliberate refresh no-op (or neutral
// publisher when OfflineNeutral is set).
func (c DeviceConfig) Identity() (state.DeviceIdentity, error) {
	if c.Id == "" {
		return state.DeviceIdentity{}, fmt.Errorf("device configuration '%s' missing Id", c.Name)
	}

	switch state.DeviceType(c.Type) {
	case state.DeviceMeter, state.DeviceMotion, state.DevicePlug:
	default:
		return state.DeviceIdentity{}, fmt.Errorf("device configuration '%s' has unknown type: %s", c.Name, c.Type)
	}

	var transports []state.Transport

	for _, t := range c.Transports {
		switch transport := state.Transport(t); transport {
		case state.TransportRadio, state.TransportCloud, state.TransportWebhook:
			transports = append(transports, transport)
		default:
			return state.DeviceIdentity{}, fmt.Errorf("device configuration '%s' has unknown transport: %s", c.Name, t)
		}
	}

	identity := state.DeviceIdentity{
		Id:              c.Id,
		Address:         c.Address,
		DeviceType:      state.DeviceType(c.Type),
		Model:           c.Model,
		ModelName:       c.ModelName,
		Transports:      transports,
		RefreshInterval: time.Duration(c.RefreshInterval) * time.Second,
		ScanDuration:    time.Duration(c.ScanDuration) * time.Second,
		MaxRetries:      c.MaxRetries,
		RetryDelay:      time.Duration(c.RetryDelay) * time.Millisecond,
		TemperatureUnit: c.TemperatureUnit,
		OfflineNeutral:  c.OfflineNeutral,
	}

	for _, h := range c.Hide {
		identity.Hide = append(identity.Hide, state.Capability(h))
	}

	if identity.RefreshInterval <= 0 {
		identity.RefreshInterval = DefaultRefreshInterval
	}

	if identity.ScanDuration <= 0 {
		identity.ScanDuration = DefaultScanDuration
	}

	if identity.MaxRetries <= 0 {
		identity.MaxRetries = DefaultMaxRetries
	}

	if identity.RetryDelay <= 0 {
		identity.RetryDelay = DefaultRetryDelay
	}

	return identity, nil
}

// CloudConfig holds the cloud API credential pair. Both fields empty means
// the account has no stored credential and the cloud transport is
// unavailable.
type CloudConfig struct {
	Token  string
	Secret string
}
