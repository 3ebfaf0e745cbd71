package v1

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Loodyy/homebridge-switchbot/refresh"
	"github.com/Loodyy/homebridge-switchbot/registry"
	"github.com/gorilla/mux"
)

// DeviceMapper resolves registered device pipelines for the API surface.
type DeviceMapper interface {
	Device(id string) (*refresh.Orchestrator, bool)
	Devices() []*refresh.Orchestrator
}

// DeviceCommander dispatches a control command to a device.
type DeviceCommander interface {
	Command(ctx context.Context, id string, command string, parameter string, commandType string) error
}

// ExportedReading is one capability value with its provenance.
type ExportedReading struct {
	Value  any       `json:"value"`
	Source string    `json:"source,omitempty"`
	At     time.Time `json:"at"`
}

// ExportedDevice is the wire representation of a registered device.
type ExportedDevice struct {
	Identifier string                     `json:"identifier"`
	Address    string                     `json:"address,omitempty"`
	Type       string                     `json:"type"`
	Model      string                     `json:"model,omitempty"`
	ModelName  string                     `json:"modelName,omitempty"`
	Transports []string                   `json:"transports"`
	Cycle      string                     `json:"cycle"`
	State      map[string]ExportedReading `json:"state"`
}

type deviceController struct {
	deviceMapper    DeviceMapper
	deviceCommander DeviceCommander
}

func exportDevice(o *refresh.Orchestrator) ExportedDevice {
	identity := o.Identity()

	transports := make([]string, 0, len(identity.Transports))
	for _, t := range identity.Transports {
		transports = append(transports, string(t))
	}

	deviceState := map[string]ExportedReading{}
	for c, reading := range o.Snapshot() {
		if identity.Hidden(c) {
			continue
		}

		deviceState[string(c)] = ExportedReading{
			Value:  reading.Value,
			Source: string(reading.Source),
			At:     reading.At,
		}
	}

	return ExportedDevice{
		Identifier: identity.Id,
		Address:    identity.Address,
		Type:       string(identity.DeviceType),
		Model:      identity.Model,
		ModelName:  identity.ModelName,
		Transports: transports,
		Cycle:      o.State().String(),
		State:      deviceState,
	}
}

func (d *deviceController) listDevices(w http.ResponseWriter, r *http.Request) {
	apiDevices := map[string]ExportedDevice{}

	for _, o := range d.deviceMapper.Devices() {
		exported := exportDevice(o)
		apiDevices[exported.Identifier] = exported
	}

	data, err := json.Marshal(apiDevices)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Add("content-type", "application/json")
	_, _ = w.Write(data)
}

func (d *deviceController) getDevice(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)

	id, ok := params["identifier"]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	o, found := d.deviceMapper.Device(id)
	if !found {
		http.NotFound(w, r)
		return
	}

	data, err := json.Marshal(exportDevice(o))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Add("content-type", "application/json")
	_, _ = w.Write(data)
}

type commandRequest struct {
	Command     string
	Parameter   string
	CommandType string
}

func (d *deviceController) commandDevice(w http.ResponseWriter, r *http.Request) {
	params := mux.Vars(r)

	id, ok := params["identifier"]
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	request := commandRequest{
		Parameter:   "default",
		CommandType: "command",
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if err := json.Unmarshal(data, &request); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	if request.Command == "" {
		http.Error(w, "missing command", http.StatusBadRequest)
		return
	}

	if err := d.deviceCommander.Command(r.Context(), id, request.Command, request.Parameter, request.CommandType); err != nil {
		if errors.Is(err, registry.ErrUnknownDevice) {
			http.NotFound(w, r)
		} else {
			http.Error(w, err.Error(), http.StatusBadGateway)
		}

		return
	}

	http.Error(w, http.StatusText(http.StatusNoContent), http.StatusNoContent)
}
