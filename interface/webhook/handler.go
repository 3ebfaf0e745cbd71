package webhook

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/Loodyy/homebridge-switchbot/transport"
	"github.com/gorilla/mux"
	"github.com/shimmeringbee/logwrap"
	"github.com/tidwall/gjson"
)

// Dispatcher routes a parsed webhook push to the owning device pipeline.
type Dispatcher interface {
	OnWebhookEvent(ctx context.Context, ev *transport.WebhookEvent)
}

// Receiver is the inbound webhook HTTP surface. The cloud posts change
// reports with the device context embedded; delivery is at least once, so
// duplicates are expected and safe.
type Receiver struct {
	Dispatcher Dispatcher
	Logger     logwrap.Logger
}

func ConstructRouter(d Dispatcher, l logwrap.Logger) *mux.Router {
	r := mux.NewRouter()

	receiver := &Receiver{Dispatcher: d, Logger: l}
	r.HandleFunc("/webhook", receiver.handlePost).Methods("POST")

	return r
}

func (r *Receiver) handlePost(w http.ResponseWriter, req *http.Request) {
	data, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	ev, ok := ParseEvent(data)
	if !ok {
		r.Logger.LogDebug(req.Context(), "Ignoring webhook without a device context.")
		http.Error(w, "missing device context", http.StatusBadRequest)
		return
	}

	r.Dispatcher.OnWebhookEvent(req.Context(), ev)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"statusCode":100}`))
}

// ParseEvent extracts the device context from a webhook change report. The
// push envelope is {eventType, eventVersion, context:{deviceType,
// deviceMac, ...fields}}; the context object travels on as the raw decode
// payload.
func ParseEvent(data []byte) (*transport.WebhookEvent, bool) {
	deviceContext := gjson.GetBytes(data, "context")
	if !deviceContext.Exists() {
		return nil, false
	}

	address := deviceContext.Get("deviceMac").String()
	if address == "" {
		return nil, false
	}

	return &transport.WebhookEvent{
		DeviceId:   strings.ReplaceAll(address, ":", ""),
		Address:    address,
		DeviceType: deviceContext.Get("deviceType").String(),
		Body:       []byte(deviceContext.Raw),
	}, true
}
