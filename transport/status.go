package transport

// StatusClass buckets the cloud API's numeric status codes.
type StatusClass int

const (
	StatusSuccess StatusClass = iota
	StatusDeviceOffline
	StatusClientError
	StatusServerError
	StatusUnclassified
)

const (
	CodeSuccess       = 100
	CodeOK            = 200
	CodeDeviceOffline = 161
	CodeHubOffline    = 171
)

// EmptyHubDeviceId is the placeholder the cloud reports for devices which
// are their own hub.
const EmptyHubDeviceId = "000000000000"

// Status is the classification of one cloud status code after remapping.
type Status struct {
	Code  int
	Class StatusClass
	Hint  string
}

var statusTable = map[int]Status{
	CodeSuccess:       {CodeSuccess, StatusSuccess, "success"},
	CodeOK:            {CodeOK, StatusSuccess, "success"},
	151:               {151, StatusClientError, "device type error"},
	152:               {152, StatusClientError, "device not found"},
	160:               {160, StatusClientError, "command is not supported"},
	CodeDeviceOffline: {CodeDeviceOffline, StatusDeviceOffline, "device offline"},
	CodeHubOffline:    {CodeHubOffline, StatusDeviceOffline, "hub offline"},
	190:               {190, StatusServerError, "internal error due to device states not synchronized with server"},
	400:               {400, StatusClientError, "bad request"},
	401:               {401, StatusClientError, "unauthorized"},
	403:               {403, StatusClientError, "forbidden"},
	404:               {404, StatusClientError, "not found"},
	406:               {406, StatusClientError, "not acceptable"},
	415:               {415, StatusClientError, "unsupported media type"},
	422:               {422, StatusClientError, "unprocessable entity"},
	429:               {429, StatusClientError, "too many requests"},
	500:               {500, StatusServerError, "internal server error"},
}

// ClassifyStatus maps a cloud status code to its class. A hub offline code
// is remapped to device offline when the device is its own hub: its
// hubDeviceId equals its own id, or the all-zero placeholder.
func ClassifyStatus(code int, deviceId string, hubDeviceId string) Status {
	if code == CodeHubOffline && (hubDeviceId == deviceId || hubDeviceId == EmptyHubDeviceId || hubDeviceId == "") {
		code = CodeDeviceOffline
	}

	if s, found := statusTable[code]; found {
		return s
	}

	return Status{Code: code, Class: StatusUnclassified, Hint: "unclassified status code, consult cloud API documentation for this device type"}
}
