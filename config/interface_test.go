package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterfaceConfig_UnmarshalJSON(t *testing.T) {
	t.Run("mqtt configuration selects the mqtt stanza", func(t *testing.T) {
		data := []byte(`{
	"Type": "mqtt",
	"Config": {
		"Server": "tcp://broker.example:1883",
		"Credentials": {"Username": "switchbot", "Password": "hunter2"},
		"Retained": true,
		"QOS": 1,
		"TopicPrefix": "home",
		"PublishStateOnConnect": true
	}
}`)

		c := InterfaceConfig{}
		err := json.Unmarshal(data, &c)
		assert.NoError(t, err)
		assert.Equal(t, "mqtt", c.Type)

		mqttConfig, ok := c.Config.(*MQTTInterfaceConfig)
		assert.True(t, ok)
		assert.Equal(t, "tcp://broker.example:1883", mqttConfig.Server)
		assert.Equal(t, "switchbot", mqttConfig.Credentials.Username)
		assert.True(t, mqttConfig.Retained)
		assert.Equal(t, byte(1), mqttConfig.QOS)
		assert.Equal(t, "home", mqttConfig.TopicPrefix)
		assert.True(t, mqttConfig.PublishStateOnConnect)
	})

	t.Run("webhook configuration selects the webhook stanza", func(t *testing.T) {
		data := []byte(`{"Type": "webhook", "Config": {"Port": 8090}}`)

		c := InterfaceConfig{}
		err := json.Unmarshal(data, &c)
		assert.NoError(t, err)
		assert.Equal(t, "webhook", c.Type)

		webhookConfig, ok := c.Config.(*WebhookInterfaceConfig)
		assert.True(t, ok)
		assert.Equal(t, 8090, webhookConfig.Port)
	})

	t.Run("http configuration selects the http stanza", func(t *testing.T) {
		data := []byte(`{"Type": "http", "Config": {"Port": 8080, "EnablePprof": true}}`)

		c := InterfaceConfig{}
		err := json.Unmarshal(data, &c)
		assert.NoError(t, err)

		httpConfig, ok := c.Config.(*HTTPInterfaceConfig)
		assert.True(t, ok)
		assert.Equal(t, 8080, httpConfig.Port)
		assert.True(t, httpConfig.EnablePprof)
	})

	t.Run("history configuration selects the history stanza", func(t *testing.T) {
		data := []byte(`{"Type": "history", "Config": {"URL": "http://influx.example:8086", "Token": "abc", "Org": "home", "Bucket": "devices"}}`)

		c := InterfaceConfig{}
		err := json.Unmarshal(data, &c)
		assert.NoError(t, err)

		historyConfig, ok := c.Config.(*HistoryInterfaceConfig)
		assert.True(t, ok)
		assert.Equal(t, "http://influx.example:8086", historyConfig.URL)
		assert.Equal(t, "devices", historyConfig.Bucket)
	})

	t.Run("missing type is rejected", func(t *testing.T) {
		c := InterfaceConfig{}
		err := json.Unmarshal([]byte(`{"Config": {}}`), &c)
		assert.Error(t, err)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		c := InterfaceConfig{}
		err := json.Unmarshal([]byte(`{"Type": "telepathy", "Config": {}}`), &c)
		assert.Error(t, err)
	})

	t.Run("missing config stanza is rejected", func(t *testing.T) {
		c := InterfaceConfig{}
		err := json.Unmarshal([]byte(`{"Type": "mqtt"}`), &c)
		assert.Error(t, err)
	})
}
