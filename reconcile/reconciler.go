package reconcile

import (
	"context"
	"sort"

	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/shimmeringbee/logwrap"
)

// HostUpdater pushes one characteristic value into the host platform's
// accessory model. An error means the host was not updated and the value
// must not be recorded as published.
type HostUpdater interface {
	UpdateCharacteristic(ctx context.Context, identity state.DeviceIdentity, c state.Capability, value any) error
}

// HistoryWriter records published samples for trend history. Best effort:
// implementations log failures, they never propagate them.
type HistoryWriter interface {
	WriteSample(identity state.DeviceIdentity, c state.Capability, value any)
}

type nullHistoryWriter struct{}

func (_ nullHistoryWriter) WriteSample(state.DeviceIdentity, state.Capability, any) {}

var NullHistoryWriter = nullHistoryWriter{}

// Change is one capability whose decoded value differs from what the host
// platform last saw.
type Change struct {
	Capability state.Capability
	Reading    state.Reading
}

// Diff returns the capabilities in snapshot whose value differs from the
// published view, or which were never published. Pure; order is stable.
func Diff(snapshot state.Snapshot, published map[state.Capability]any) []Change {
	var changes []Change

	for c, reading := range snapshot {
		old, found := published[c]
		if found && old == reading.Value {
			continue
		}

		changes = append(changes, Change{Capability: c, Reading: reading})
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Capability < changes[j].Capability
	})

	return changes
}

// Reconciler applies snapshot diffs to the host platform and fans the
// published values out to telemetry and history.
type Reconciler struct {
	Host    HostUpdater
	Events  state.EventPublisher
	History HistoryWriter
	Logger  logwrap.Logger
}

func NewReconciler(host HostUpdater, events state.EventPublisher, history HistoryWriter, l logwrap.Logger) *Reconciler {
	if history == nil {
		history = NullHistoryWriter
	}

	return &Reconciler{
		Host:    host,
		Events:  events,
		History: history,
		Logger:  l,
	}
}

// Apply pushes each changed capability to the host, recording it as
// published strictly after the host accepted it. A failed or undefined
// capability is skipped this cycle and retried on the next successful one.
// Hidden capabilities are never pushed. Returns the number published.
func (r *Reconciler) Apply(ctx context.Context, identity state.DeviceIdentity, snapshot state.Snapshot, published *state.Published) int {
	applied := 0

	for _, change := range Diff(snapshot, published.All()) {
		if identity.Hidden(change.Capability) {
			continue
		}

		if change.Reading.Value == nil {
			r.Logger.LogDebug(ctx, "Capability value undefined, skipping publish.", logwrap.Datum("device", identity.Id), logwrap.Datum("capability", string(change.Capability)))
			continue
		}

		if err := r.Host.UpdateCharacteristic(ctx, identity, change.Capability, change.Reading.Value); err != nil {
			r.Logger.LogWarn(ctx, "Host update failed, capability will retry next cycle.", logwrap.Datum("device", identity.Id), logwrap.Datum("capability", string(change.Capability)), logwrap.Err(err))
			continue
		}

		published.Set(change.Capability, change.Reading.Value)
		applied++

		r.Events.Publish(state.CapabilityChanged{
			Identity:   identity,
			Capability: change.Capability,
			Value:      change.Reading.Value,
			Source:     change.Reading.Source,
		})

		r.History.WriteSample(identity, change.Capability, change.Reading.Value)
	}

	return applied
}
