package v1

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/shimmeringbee/logwrap"
)

func ConstructRouter(mapper DeviceMapper, commander DeviceCommander, l logwrap.Logger) http.Handler {
	r := mux.NewRouter()

	dc := deviceController{
		deviceMapper:    mapper,
		deviceCommander: commander,
	}

	r.HandleFunc("/devices", dc.listDevices).Methods("GET")
	r.HandleFunc("/devices/{identifier}", dc.getDevice).Methods("GET")
	r.HandleFunc("/devices/{identifier}/command", dc.commandDevice).Methods("POST")

	return r
}
