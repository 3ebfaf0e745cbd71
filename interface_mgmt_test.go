package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Loodyy/homebridge-switchbot/config"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/discard"
	"github.com/stretchr/testify/assert"
)

func Test_loadInterfaceConfigurations(t *testing.T) {
	t.Run("loads typed interface configurations from a directory", func(t *testing.T) {
		dir := t.TempDir()

		mqttCfg := []byte(`{"Type": "mqtt", "Config": {"Server": "tcp://broker.example:1883"}}`)
		webhookCfg := []byte(`{"Type": "webhook", "Config": {"Port": 8090}}`)

		assert.NoError(t, os.WriteFile(filepath.Join(dir, "broker.json"), mqttCfg, 0600))
		assert.NoError(t, os.WriteFile(filepath.Join(dir, "pushes.json"), webhookCfg, 0600))

		cfgs, err := loadInterfaceConfigurations(dir)
		assert.NoError(t, err)
		assert.Len(t, cfgs, 2)
	})

	t.Run("unknown interface type is an error", func(t *testing.T) {
		dir := t.TempDir()

		assert.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte(`{"Type": "telepathy", "Config": {}}`), 0600))

		_, err := loadInterfaceConfigurations(dir)
		assert.Error(t, err)
	})
}

func Test_constructHistory(t *testing.T) {
	t.Run("no history configuration yields a null writer", func(t *testing.T) {
		w, shutdown := constructHistory([]config.InterfaceConfig{
			{Type: "webhook", Config: &config.WebhookInterfaceConfig{Port: 8090}},
		}, logwrap.New(discard.Discard()))

		assert.NotNil(t, w)
		shutdown()
	})
}

func Test_topicPrefixing(t *testing.T) {
	t.Run("empty prefix leaves topics untouched", func(t *testing.T) {
		assert.Equal(t, "command/abc", prefixTopic("", "command/abc"))
		assert.Equal(t, "command/abc", stripPrefixTopic("", "command/abc"))
	})

	t.Run("prefix is applied and stripped symmetrically", func(t *testing.T) {
		prefixed := prefixTopic("home", "command/abc")
		assert.Equal(t, "home/command/abc", prefixed)
		assert.Equal(t, "command/abc", stripPrefixTopic("home", prefixed))
	})
}
