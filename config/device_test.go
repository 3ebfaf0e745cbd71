package config

import (
	"testing"
	"time"

	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/stretchr/testify/assert"
)

func TestDeviceConfig_Identity(t *testing.T) {
	t.Run("fully specified configuration maps onto the identity", func(t *testing.T) {
		c := DeviceConfig{
			Name:            "bedroom-meter",
			Type:            "meter",
			Id:              "C12E453E2008",
			Address:         "c1:2e:45:3e:20:08",
			Model:           "T",
			ModelName:       "WoSensorTH",
			Transports:      []string{"radio", "cloud", "webhook"},
			RefreshInterval: 300,
			ScanDuration:    10,
			MaxRetries:      5,
			RetryDelay:      500,
			TemperatureUnit: "F",
			Hide:            []string{"battery"},
			OfflineNeutral:  true,
		}

		identity, err := c.Identity()
		assert.NoError(t, err)

		assert.Equal(t, "C12E453E2008", identity.Id)
		assert.Equal(t, state.DeviceMeter, identity.DeviceType)
		assert.Equal(t, 300*time.Second, identity.RefreshInterval)
		assert.Equal(t, 10*time.Second, identity.ScanDuration)
		assert.Equal(t, 5, identity.MaxRetries)
		assert.Equal(t, 500*time.Millisecond, identity.RetryDelay)
		assert.Equal(t, "F", identity.TemperatureUnit)
		assert.True(t, identity.OfflineNeutral)

		assert.True(t, identity.TransportEnabled(state.TransportRadio))
		assert.True(t, identity.TransportEnabled(state.TransportCloud))
		assert.True(t, identity.TransportEnabled(state.TransportWebhook))
		assert.True(t, identity.Hidden(state.CapabilityBattery))
		assert.False(t, identity.Hidden(state.CapabilityTemperature))
	})

	t.Run("unset tunables receive defaults", func(t *testing.T) {
		c := DeviceConfig{
			Type: "plug",
			Id:   "C12E453E2009",
		}

		identity, err := c.Identity()
		assert.NoError(t, err)

		assert.Equal(t, DefaultRefreshInterval, identity.RefreshInterval)
		assert.Equal(t, DefaultScanDuration, identity.ScanDuration)
		assert.Equal(t, DefaultMaxRetries, identity.MaxRetries)
		assert.Equal(t, DefaultRetryDelay, identity.RetryDelay)
	})

	t.Run("empty transport list is legal", func(t *testing.T) {
		c := DeviceConfig{
			Type: "motion",
			Id:   "C12E453E2010",
		}

		identity, err := c.Identity()
		assert.NoError(t, err)

		assert.False(t, identity.TransportEnabled(state.TransportRadio))
		assert.False(t, identity.TransportEnabled(state.TransportCloud))
		assert.False(t, identity.TransportEnabled(state.TransportWebhook))
	})

	t.Run("missing id is rejected", func(t *testing.T) {
		c := DeviceConfig{Name: "broken", Type: "meter"}

		_, err := c.Identity()
		assert.Error(t, err)
	})

	t.Run("unknown device type is rejected", func(t *testing.T) {
		c := DeviceConfig{Name: "broken", Type: "toaster", Id: "C12E453E2008"}

		_, err := c.Identity()
		assert.Error(t, err)
	})

	t.Run("unknown transport is rejected", func(t *testing.T) {
		c := DeviceConfig{Name: "broken", Type: "meter", Id: "C12E453E2008", Transports: []string{"carrier-pigeon"}}

		_, err := c.Identity()
		assert.Error(t, err)
	})
}
