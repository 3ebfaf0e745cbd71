package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Loodyy/homebridge-switchbot/refresh"
	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/shimmeringbee/logwrap"
)

type Publisher func(ctx context.Context, topic string, payload []byte) error

func EmptyPublisher(ctx context.Context, topic string, payload []byte) error {
	return nil
}

type mqttError string

func (m mqttError) Error() string {
	return string(m)
}

const UnknownTopic = mqttError("unknown topic")

// DeviceLister exposes the registered device pipelines for the publish
// state on connect behaviour.
type DeviceLister interface {
	Devices() []*refresh.Orchestrator
}

// DeviceCommander dispatches a control command to a device. Command errors
// surface here so the failure can be reported on the reply topic.
type DeviceCommander interface {
	Command(ctx context.Context, id string, command string, parameter string, commandType string) error
}

// Interface publishes capability telemetry to an MQTT broker. Topics are
// keyed by device type and stable hardware address. Publishing is best
// effort: failures are logged, never retried.
type Interface struct {
	Publisher     Publisher
	publisherLock sync.RWMutex
	stop          chan bool

	Devices         DeviceLister
	Commander       DeviceCommander
	EventSubscriber state.EventSubscriber
	Logger          logwrap.Logger

	PublishStateOnConnect bool
}

// IncomingMessage routes inbound broker messages. The only accepted topic
// shape is command/<deviceId> with a JSON body naming the command,
// parameter and commandType.
func (i *Interface) IncomingMessage(ctx context.Context, topic string, payload []byte) error {
	topicParts := strings.Split(topic, "/")

	if len(topicParts) == 2 && topicParts[0] == "command" && i.Commander != nil {
		return i.incomingCommand(ctx, topicParts[1], payload)
	}

	return fmt.Errorf("%w: %s", UnknownTopic, topic)
}

func (i *Interface) incomingCommand(ctx context.Context, deviceId string, payload []byte) error {
	body := struct {
		Command     string
		Parameter   string
		CommandType string
	}{
		Parameter:   "default",
		CommandType: "command",
	}

	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("failed to parse command payload: %w", err)
	}

	if err := i.Commander.Command(ctx, deviceId, body.Command, body.Parameter, body.CommandType); err != nil {
		return fmt.Errorf("unable to invoke command on device: %w", err)
	}

	return nil
}

func (i *Interface) Start() {
	i.stop = make(chan bool, 1)

	ch := make(chan any, 100)
	i.EventSubscriber.Subscribe(ch)

	go i.handleEvents(ch)
}

func (i *Interface) Stop() {
	if i.stop != nil {
		i.stop <- true
	}
}

// Connected and Disconnected run on the MQTT client's callback
// goroutines while the event loop publishes; the publisher swap is
// guarded accordingly.
func (i *Interface) Connected(ctx context.Context, publisher Publisher) error {
	i.publisherLock.Lock()
	i.Publisher = publisher
	i.publisherLock.Unlock()

	if i.PublishStateOnConnect {
		i.Logger.LogInfo(ctx, "MQTT connected, publishing current state of all devices.")
		go i.publishAll()
	}

	return nil
}

func (i *Interface) Disconnected() {
	i.publisherLock.Lock()
	i.Publisher = EmptyPublisher
	i.publisherLock.Unlock()
}

func (i *Interface) publisher() Publisher {
	i.publisherLock.RLock()
	defer i.publisherLock.RUnlock()

	if i.Publisher == nil {
		return EmptyPublisher
	}

	return i.Publisher
}

func (i *Interface) handleEvents(ch chan any) {
	for {
		select {
		case event := <-ch:
			i.serviceUpdateOnEvent(event)
		case <-i.stop:
			return
		}
	}
}

func (i *Interface) serviceUpdateOnEvent(event any) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	switch e := event.(type) {
	case state.CapabilityChanged:
		i.publishCapability(ctx, e.Identity, e.Capability, e.Value, string(e.Source))
	case state.DeviceOffline:
		i.publishRaw(ctx, fmt.Sprintf("%s/online", deviceTopic(e.Identity)), []byte(`false`))
	case state.DeviceRegistered:
		i.publishRaw(ctx, fmt.Sprintf("%s/online", deviceTopic(e.Identity)), []byte(`true`))
	}
}

func (i *Interface) publishAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if i.Devices == nil {
		return
	}

	for _, o := range i.Devices.Devices() {
		identity := o.Identity()

		for c, reading := range o.Snapshot() {
			i.publishCapability(ctx, identity, c, reading.Value, string(reading.Source))
		}
	}
}

func (i *Interface) publishCapability(ctx context.Context, identity state.DeviceIdentity, c state.Capability, value any, source string) {
	payload, err := json.Marshal(map[string]any{
		"value":  value,
		"source": source,
	})
	if err != nil {
		i.Logger.LogError(ctx, "Failed to marshal capability payload.", logwrap.Datum("capability", string(c)), logwrap.Err(err))
		return
	}

	topic := fmt.Sprintf("%s/%s", deviceTopic(identity), c)
	i.publishRaw(ctx, topic, payload)
}

func (i *Interface) publishRaw(ctx context.Context, topic string, payload []byte) {
	if err := i.publisher()(ctx, topic, payload); err != nil {
		i.Logger.LogError(ctx, "Failed to publish to MQTT.", logwrap.Datum("topic", topic), logwrap.Err(err))
	}
}

func deviceTopic(identity state.DeviceIdentity) string {
	address := strings.ReplaceAll(identity.Address, ":", "")
	if address == "" {
		address = identity.Id
	}

	return fmt.Sprintf("devices/%s/%s", identity.DeviceType, address)
}
