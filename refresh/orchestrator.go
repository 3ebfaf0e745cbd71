package refresh

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Loodyy/homebridge-switchbot/decoder"
	"github.com/Loodyy/homebridge-switchbot/reconcile"
	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/shimmeringbee/logwrap"
)

// CycleState is the refresh state machine position for one device. At most
// one cycle is InFlight or Retrying per device at any instant.
type CycleState int

const (
	Idle CycleState = iota
	InFlight
	Retrying
	Failed
)

func (s CycleState) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "inflight"
	case Retrying:
		return "retrying"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// neutralValues are the documented offline fallback placeholders published
// when a device has no usable transport but is intentionally kept visible.
var neutralValues = map[state.Capability]any{
	state.CapabilityTemperature:      30.0,
	state.CapabilityHumidity:         50.0,
	state.CapabilityBattery:          100.0,
	state.CapabilityStatusLowBattery: state.LowBatteryNormal,
	state.CapabilityMotion:           false,
	state.CapabilityLight:            0.0,
	state.CapabilityPower:            "off",
}

// Orchestrator runs the refresh cycle for one device: transport selection,
// fallback, bounded retry and snapshot reconciliation. Periodic ticks are
// mutually exclusive via a busy flag; push payloads bypass the exclusion
// since they represent already completed remote work.
type Orchestrator struct {
	identity   state.DeviceIdentity
	decoder    decoder.Decoder
	scanner    transport.Scanner
	cloud      transport.CloudClient
	reconciler *reconcile.Reconciler
	events     state.EventPublisher
	logger     logwrap.Logger

	busy int32

	cycleLock sync.Mutex
	cycle     CycleState
	attempt   int

	snapshotLock sync.Mutex
	snapshot     state.Snapshot
	published    *state.Published
}

func NewOrchestrator(identity state.DeviceIdentity, dec decoder.Decoder, scanner transport.Scanner, cloud transport.CloudClient, reconciler *reconcile.Reconciler, events state.EventPublisher, published *state.Published, l logwrap.Logger) *Orchestrator {
	return &Orchestrator{
		identity:   identity,
		decoder:    dec,
		scanner:    scanner,
		cloud:      cloud,
		reconciler: reconciler,
		events:     events,
		logger:     l,
		snapshot:   state.NewSnapshot(),
		published:  published,
	}
}

func (o *Orchestrator) Identity() state.DeviceIdentity {
	return o.identity
}

func (o *Orchestrator) State() CycleState {
	o.cycleLock.Lock()
	defer o.cycleLock.Unlock()

	return o.cycle
}

// Snapshot returns the current normalized state by value.
func (o *Orchestrator) Snapshot() state.Snapshot {
	o.snapshotLock.Lock()
	defer o.snapshotLock.Unlock()

	return o.snapshot.Merge(nil)
}

func (o *Orchestrator) Published() *state.Published {
	return o.published
}

func (o *Orchestrator) setCycle(s CycleState, attempt int) {
	o.cycleLock.Lock()
	defer o.cycleLock.Unlock()

	o.cycle = s
	o.attempt = attempt
}

// Refresh runs one periodic refresh cycle. A tick arriving while the
// previous cycle is still in flight is skipped entirely, not queued; no
// backlog can accumulate.
func (o *Orchestrator) Refresh(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&o.busy, 0, 1) {
		o.logger.LogDebug(ctx, "Refresh tick skipped, previous cycle still in flight.", logwrap.Datum("device", o.identity.Id))
		return
	}
	defer atomic.StoreInt32(&o.busy, 0)

	o.runCycle(ctx)
}

func (o *Orchestrator) runCycle(ctx context.Context) {
	cloudEnabled := o.identity.TransportEnabled(state.TransportCloud)
	cloudUsable := cloudEnabled && o.cloud != nil && o.cloud.Credentialed()
	radioUsable := o.identity.TransportEnabled(state.TransportRadio) && o.scanner != nil

	if cloudEnabled && !cloudUsable {
		o.logger.LogError(ctx, "Cloud transport enabled but no credential stored, refusing to refresh.", logwrap.Datum("device", o.identity.Id))
		o.setCycle(Idle, 0)
		return
	}

	var snapshot state.Snapshot
	var err error

	switch {
	case radioUsable:
		snapshot, err = o.attemptRadio(ctx)

		if err != nil && cloudUsable {
			o.logger.LogDebug(ctx, "Radio attempts exhausted, falling back to cloud.", logwrap.Datum("device", o.identity.Id), logwrap.Err(err))
			snapshot, err = o.attemptCloud(ctx)
		}
	case cloudUsable:
		snapshot, err = o.attemptCloud(ctx)
	default:
		if o.identity.OfflineNeutral {
			o.publishNeutral(ctx)
		} else {
			o.logger.LogInfo(ctx, "No usable transport for device, refresh is a no-op.", logwrap.Datum("device", o.identity.Id))
		}

		o.setCycle(Idle, 0)
		return
	}

	if err != nil {
		o.logger.LogWarn(ctx, "Refresh cycle failed, previous values retained until next tick.", logwrap.Datum("device", o.identity.Id), logwrap.Err(err))
		o.setCycle(Failed, 0)
		return
	}

	o.apply(ctx, snapshot)
	o.setCycle(Idle, 0)
}

// attemptRadio scans for a matching advertisement, retrying up to the
// configured attempt limit with the configured delay between attempts.
func (o *Orchestrator) attemptRadio(ctx context.Context) (state.Snapshot, error) {
	attempts := o.identity.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt == 1 {
			o.setCycle(InFlight, attempt)
		} else {
			o.setCycle(Retrying, attempt)

			select {
			case <-time.After(o.identity.RetryDelay):
			case <-ctx.Done():
				return nil, transport.ErrTimeout
			}
		}

		adv, err := o.scanner.Scan(ctx, o.identity.Address, o.identity.Model, o.identity.ScanDuration)
		if err != nil {
			lastErr = err
			continue
		}

		if adv == nil {
			lastErr = fmt.Errorf("%w: no matching advertisement seen", transport.ErrTimeout)
			continue
		}

		snapshot, err := o.decoder.DecodeRadio(ctx, o.identity, adv)
		if err != nil {
			// A wrong model packet is handled identically to no payload.
			lastErr = err
			continue
		}

		return snapshot, nil
	}

	return nil, lastErr
}

// attemptCloud fetches device status from the cloud. Request level retry is
// internal to the transport; status code classification happens here.
func (o *Orchestrator) attemptCloud(ctx context.Context) (state.Snapshot, error) {
	o.setCycle(InFlight, 1)

	resp, err := o.cloud.Status(ctx, o.identity.Id, o.identity.MaxRetries, o.identity.RetryDelay)
	if err != nil {
		return nil, err
	}

	status := transport.ClassifyStatus(resp.StatusCode, o.identity.Id, resp.HubDeviceId)

	switch status.Class {
	case transport.StatusSuccess:
		return o.decoder.DecodeCloud(ctx, o.identity, resp)
	case transport.StatusDeviceOffline:
		o.events.Publish(state.DeviceOffline{Identity: o.identity, Reason: status.Hint})
		return nil, fmt.Errorf("cloud reports %s (status %d)", status.Hint, status.Code)
	default:
		return nil, fmt.Errorf("cloud status %d: %s", status.Code, status.Hint)
	}
}

// publishNeutral is the offline fallback: no transport is usable, so the
// documented neutral placeholder is published for each capability instead
// of leaving stale data on display.
func (o *Orchestrator) publishNeutral(ctx context.Context) {
	o.logger.LogInfo(ctx, "No usable transport, publishing neutral offline values.", logwrap.Datum("device", o.identity.Id))

	p := state.NewSnapshot()
	at := time.Now()

	for _, c := range o.decoder.Capabilities() {
		if value, found := neutralValues[c]; found {
			p[c] = state.Reading{Value: value, At: at}
		}
	}

	o.apply(ctx, p)
}

// apply merges a decoded partial snapshot over the current one, swaps the
// result in whole and reconciles it against the host platform. Push events
// enter here directly, without passing through the busy flag.
func (o *Orchestrator) apply(ctx context.Context, update state.Snapshot) {
	o.snapshotLock.Lock()
	merged := o.snapshot.Merge(update)
	o.snapshot = merged
	o.snapshotLock.Unlock()

	o.reconciler.Apply(ctx, o.identity, merged, o.published)
}

// HandleRadioAdvertisement processes an unsolicited advertisement push.
// Decode failures are contained; the previous snapshot stands.
func (o *Orchestrator) HandleRadioAdvertisement(ctx context.Context, adv *transport.RadioAdvertisement) {
	snapshot, err := o.decoder.DecodeRadio(ctx, o.identity, adv)
	if err != nil {
		o.logger.LogDebug(ctx, "Discarding radio advertisement push.", logwrap.Datum("device", o.identity.Id), logwrap.Err(err))
		return
	}

	o.apply(ctx, snapshot)
}

// HandleWebhook processes an inbound webhook push. Delivery is at least
// once; replays decode to the same snapshot and reconcile to no changes.
func (o *Orchestrator) HandleWebhook(ctx context.Context, ev *transport.WebhookEvent) {
	snapshot, err := o.decoder.DecodeWebhook(ctx, o.identity, ev)
	if err != nil {
		o.logger.LogDebug(ctx, "Discarding webhook push.", logwrap.Datum("device", o.identity.Id), logwrap.Err(err))
		return
	}

	o.apply(ctx, snapshot)
}

// Command sends a control command to the device over the cloud. Unlike
// refresh there is no retry here; callers own command retry policy and are
// told about failures directly.
func (o *Orchestrator) Command(ctx context.Context, command string, parameter string, commandType string) error {
	if o.cloud == nil || !o.cloud.Credentialed() {
		return transport.ErrUnavailable
	}

	resp, err := o.cloud.Command(ctx, o.identity.Id, command, parameter, commandType)
	if err != nil {
		return fmt.Errorf("command dispatch failed: %w", err)
	}

	status := transport.ClassifyStatus(resp.StatusCode, o.identity.Id, resp.HubDeviceId)
	if status.Class != transport.StatusSuccess {
		return fmt.Errorf("command rejected: %s (status %d)", status.Hint, status.Code)
	}

	return nil
}
