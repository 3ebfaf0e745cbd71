package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Loodyy/homebridge-switchbot/decoder"
	"github.com/Loodyy/homebridge-switchbot/reconcile"
	"github.com/Loodyy/homebridge-switchbot/refresh"
	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/persistence"
)

type registryError string

func (e registryError) Error() string {
	return string(e)
}

const (
	ErrUnknownDevice     = registryError("unknown device")
	ErrUnknownDeviceType = registryError("unknown device type")
)

const webhookQueueDepth = 16

// pipeline is one registered device: its orchestrator, its refresh ticker
// and its ordered inbound webhook queue.
type pipeline struct {
	orchestrator *refresh.Orchestrator

	stopTicker  chan struct{}
	webhookCh   chan *transport.WebhookEvent
	stopWebhook chan struct{}
}

// Registry owns one refresh pipeline per registered device and routes
// periodic ticks, radio advertisements and webhook pushes to the matching
// pipeline. Ticker lifecycle is tied to Add/Remove.
type Registry struct {
	scanner    transport.Scanner
	cloud      transport.CloudClient
	reconciler *reconcile.Reconciler
	events     state.EventPublisher
	section    persistence.Section
	logger     logwrap.Logger

	lock        sync.RWMutex
	byId        map[string]*pipeline
	idByAddress map[string]string
}

func NewRegistry(scanner transport.Scanner, cloud transport.CloudClient, reconciler *reconcile.Reconciler, events state.EventPublisher, section persistence.Section, l logwrap.Logger) *Registry {
	return &Registry{
		scanner:     scanner,
		cloud:       cloud,
		reconciler:  reconciler,
		events:      events,
		section:     section,
		logger:      l,
		byId:        map[string]*pipeline{},
		idByAddress: map[string]string{},
	}
}

// Add registers a device and starts its periodic refresh ticker. The first
// refresh runs immediately rather than one interval in.
func (r *Registry) Add(identity state.DeviceIdentity) error {
	dec, found := decoder.ForDevice(identity.DeviceType, r.logger)
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownDeviceType, identity.DeviceType)
	}

	published := state.NewPublished(r.section.Section(identity.Id))

	p := &pipeline{
		orchestrator: refresh.NewOrchestrator(identity, dec, r.scanner, r.cloud, r.reconciler, r.events, published, r.logger),
		stopTicker:   make(chan struct{}, 1),
		webhookCh:    make(chan *transport.WebhookEvent, webhookQueueDepth),
		stopWebhook:  make(chan struct{}, 1),
	}

	r.lock.Lock()

	if _, exists := r.byId[identity.Id]; exists {
		r.lock.Unlock()
		return fmt.Errorf("device already registered: %s", identity.Id)
	}

	r.byId[identity.Id] = p

	if identity.Address != "" {
		r.idByAddress[identity.Address] = identity.Id
	}

	r.lock.Unlock()

	go r.runTicker(p)
	go r.runWebhookQueue(p)

	r.events.Publish(state.DeviceRegistered{Identity: identity})
	r.logger.LogInfo(context.Background(), "Device registered.", logwrap.Datum("device", identity.Id), logwrap.Datum("type", string(identity.DeviceType)))

	return nil
}

// Remove deregisters a device, stopping its ticker and webhook queue.
func (r *Registry) Remove(id string) error {
	r.lock.Lock()

	p, found := r.byId[id]
	if !found {
		r.lock.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	identity := p.orchestrator.Identity()

	delete(r.byId, id)
	delete(r.idByAddress, identity.Address)

	r.lock.Unlock()

	p.stopTicker <- struct{}{}
	p.stopWebhook <- struct{}{}

	r.events.Publish(state.DeviceRemoved{Identity: identity})

	return nil
}

func (r *Registry) runTicker(p *pipeline) {
	interval := p.orchestrator.Identity().RefreshInterval
	if interval <= 0 {
		interval = time.Minute
	}

	t := time.NewTicker(interval)
	defer t.Stop()

	p.orchestrator.Refresh(context.Background())

	for {
		select {
		case <-t.C:
			p.orchestrator.Refresh(context.Background())
		case <-p.stopTicker:
			return
		}
	}
}

// runWebhookQueue drains a device's inbound webhook queue in order.
// Per-device ordering is preserved; ordering across devices is not.
func (r *Registry) runWebhookQueue(p *pipeline) {
	for {
		select {
		case ev := <-p.webhookCh:
			p.orchestrator.HandleWebhook(context.Background(), ev)
		case <-p.stopWebhook:
			return
		}
	}
}

// Device returns the orchestrator for a device id.
func (r *Registry) Device(id string) (*refresh.Orchestrator, bool) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	p, found := r.byId[id]
	if !found {
		return nil, false
	}

	return p.orchestrator, true
}

// Devices returns the orchestrators of all registered devices.
func (r *Registry) Devices() []*refresh.Orchestrator {
	r.lock.RLock()
	defer r.lock.RUnlock()

	result := make([]*refresh.Orchestrator, 0, len(r.byId))
	for _, p := range r.byId {
		result = append(result, p.orchestrator)
	}

	return result
}

// OnRadioEvent routes an unsolicited advertisement to the device registered
// at its address. Unknown addresses and devices without the radio transport
// enabled drop the event.
func (r *Registry) OnRadioEvent(ctx context.Context, adv *transport.RadioAdvertisement) {
	if adv == nil {
		return
	}

	r.lock.RLock()
	id, found := r.idByAddress[adv.Address]
	var p *pipeline
	if found {
		p = r.byId[id]
	}
	r.lock.RUnlock()

	if p == nil {
		r.logger.LogDebug(ctx, "Advertisement from unknown address, dropping.", logwrap.Datum("address", adv.Address))
		return
	}

	if !p.orchestrator.Identity().TransportEnabled(state.TransportRadio) {
		return
	}

	p.orchestrator.HandleRadioAdvertisement(ctx, adv)
}

// OnWebhookEvent queues a webhook push for the matching device, looked up
// by device id first, delivery address second. Queueing preserves the
// per-device delivery order of the inbound dispatcher.
func (r *Registry) OnWebhookEvent(ctx context.Context, ev *transport.WebhookEvent) {
	if ev == nil {
		return
	}

	r.lock.RLock()
	p, found := r.byId[ev.DeviceId]
	if !found {
		if id, addrFound := r.idByAddress[ev.Address]; addrFound {
			p, found = r.byId[id]
		}
	}
	r.lock.RUnlock()

	if !found || p == nil {
		r.logger.LogDebug(ctx, "Webhook for unknown device, dropping.", logwrap.Datum("deviceId", ev.DeviceId), logwrap.Datum("address", ev.Address))
		return
	}

	if !p.orchestrator.Identity().TransportEnabled(state.TransportWebhook) {
		return
	}

	select {
	case p.webhookCh <- ev:
	default:
		r.logger.LogWarn(ctx, "Webhook queue full, dropping push.", logwrap.Datum("deviceId", ev.DeviceId))
	}
}

// Command sends a control command to a device. Errors surface to the
// caller; commands are never retried by this layer.
func (r *Registry) Command(ctx context.Context, id string, command string, parameter string, commandType string) error {
	orchestrator, found := r.Device(id)
	if !found {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}

	return orchestrator.Command(ctx, command, parameter, commandType)
}

// Stop deregisters every device, stopping all tickers and queues.
func (r *Registry) Stop() {
	r.lock.Lock()
	pipelines := make([]*pipeline, 0, len(r.byId))
	for _, p := range r.byId {
		pipelines = append(pipelines, p)
	}
	r.byId = map[string]*pipeline{}
	r.idByAddress = map[string]string{}
	r.lock.Unlock()

	for _, p := range pipelines {
		p.stopTicker <- struct{}{}
		p.stopWebhook <- struct{}{}
	}
}
