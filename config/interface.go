package config

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

type InterfaceConfig struct {
	Name   string `json:"-"`
	Type   string
	Config interface{}
}

func (g *InterfaceConfig) UnmarshalJSON(data []byte) error {
	if result := gjson.GetBytes(data, "Type"); !result.Exists() {
		return fmt.Errorf("failed to find interface type information")
	} else {
		g.Type = result.String()
	}

	switch g.Type {
	case "mqtt":
		g.Config = &MQTTInterfaceConfig{}
	case "webhook":
		g.Config = &WebhookInterfaceConfig{}
	case "http":
		g.Config = &HTTPInterfaceConfig{}
	case "history":
		g.Config = &HistoryInterfaceConfig{}
	default:
		return fmt.Errorf("unknown interface configuration type: %s", g.Type)
	}

	if result := gjson.GetBytes(data, "Config"); result.Exists() {
		return json.Unmarshal([]byte(result.Raw), g.Config)
	} else {
		return fmt.Errorf("unable to find Config stanza: %s", g.Type)
	}
}

type MQTTInterfaceConfig struct {
	Server string

	TLS         *MQTTTLS
	Credentials *MQTTCredentials

	Retained    bool
	QOS         byte
	TopicPrefix string

	PublishStateOnConnect bool
}

type MQTTTLS struct {
	IgnoreSystemRootCertificates bool
	SkipCertificateVerification  bool
	Key                          string
	Cert                         string
	CACert                       string
}

type MQTTCredentials struct {
	Username string
	Password string
}

// WebhookInterfaceConfig is the inbound webhook HTTP listener.
type WebhookInterfaceConfig struct {
	Port int
}

// HTTPInterfaceConfig is the local REST API listener.
type HTTPInterfaceConfig struct {
	Port        int
	EnablePprof bool
}

// HistoryInterfaceConfig is the InfluxDB history writer.
type HistoryInterfaceConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}
