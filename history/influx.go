package history

import (
	"context"
	"time"

	"github.com/Loodyy/homebridge-switchbot/reconcile"
	"github.com/Loodyy/homebridge-switchbot/state"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/shimmeringbee/logwrap"
)

const writeBatchSize = 50

var _ reconcile.HistoryWriter = (*Writer)(nil)

// Writer records published capability samples into an InfluxDB bucket.
// Writes are batched and asynchronous; failures are logged, never
// propagated back into the reconciliation pipeline.
type Writer struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   logwrap.Logger

	stop chan struct{}
}

func NewWriter(url string, token string, org string, bucket string, l logwrap.Logger) *Writer {
	client := influxdb2.NewClientWithOptions(url, token, influxdb2.DefaultOptions().SetBatchSize(writeBatchSize))

	w := &Writer{
		client:   client,
		writeAPI: client.WriteAPI(org, bucket),
		logger:   l,
		stop:     make(chan struct{}, 1),
	}

	go w.drainErrors()

	return w
}

func (w *Writer) drainErrors() {
	for {
		select {
		case err, ok := <-w.writeAPI.Errors():
			if !ok {
				return
			}

			w.logger.LogWarn(context.Background(), "History write failed.", logwrap.Err(err))
		case <-w.stop:
			return
		}
	}
}

func (w *Writer) WriteSample(identity state.DeviceIdentity, c state.Capability, value any) {
	fields := map[string]any{}

	switch v := value.(type) {
	case float64:
		fields["value"] = v
	case bool:
		fields["value"] = boolSample(v)
	case string:
		fields["state"] = v
	default:
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device":     identity.Id,
			"address":    identity.Address,
			"type":       string(identity.DeviceType),
			"capability": string(c),
		},
		fields,
		time.Now(),
	)

	w.writeAPI.WritePoint(point)
}

func (w *Writer) Stop() {
	w.stop <- struct{}{}
	w.writeAPI.Flush()
	w.client.Close()
}

func boolSample(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
