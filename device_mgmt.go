package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Loodyy/homebridge-switchbot/config"
	"github.com/Loodyy/homebridge-switchbot/registry"
)

func loadDeviceConfigurations(dir string) ([]config.DeviceConfig, error) {
	if err := os.MkdirAll(dir, DefaultDirectoryPermissions); err != nil {
		return nil, fmt.Errorf("failed to ensure device configuration directory exists: %w", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory listing for device configurations: %w", err)
	}

	var retCfgs []config.DeviceConfig

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		fullPath := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read device configuration file '%s': %w", fullPath, err)
		}

		cfg := config.DeviceConfig{
			Name: strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())),
		}

		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse device configuration file '%s': %w", fullPath, err)
		}

		retCfgs = append(retCfgs, cfg)
	}

	return retCfgs, nil
}

// loadCloudConfiguration reads the cloud credential pair. A missing file is
// not an error; it means no credential is stored and the cloud transport is
// unavailable.
func loadCloudConfiguration(path string) (config.CloudConfig, error) {
	cfg := config.CloudConfig{}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	} else if err != nil {
		return cfg, fmt.Errorf("failed to read cloud configuration file '%s': %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse cloud configuration file '%s': %w", path, err)
	}

	return cfg, nil
}

func registerDevices(cfgs []config.DeviceConfig, r *registry.Registry) error {
	for _, cfg := range cfgs {
		identity, err := cfg.Identity()
		if err != nil {
			return err
		}

		if err := r.Add(identity); err != nil {
			return fmt.Errorf("failed to register device '%s': %w", cfg.Name, err)
		}
	}

	return nil
}
