package main

import (
	"context"

	"github.com/Loodyy/homebridge-switchbot/reconcile"
	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/shimmeringbee/logwrap"
)

var _ reconcile.HostUpdater = (*characteristicSink)(nil)

// characteristicSink is the attachment point for the host platform's
// accessory bridge. Standalone builds run with this sink, which accepts
// every update and records it in the log.
type characteristicSink struct {
	logger logwrap.Logger
}

func (h characteristicSink) UpdateCharacteristic(ctx context.Context, identity state.DeviceIdentity, c state.Capability, value any) error {
	h.logger.LogInfo(ctx, "Characteristic updated.", logwrap.Datum("device", identity.Id), logwrap.Datum("capability", string(c)), logwrap.Datum("value", value))
	return nil
}
