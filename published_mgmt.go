package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/persistence"
)

const DefaultFilePermissions = 0600

// The published value store is held in a persistence section tree, one
// section per device, and mirrored to disk so a restart does not re-push
// values the host platform already holds.

func loadPublished(path string, section persistence.Section) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return fmt.Errorf("failed to read published state: %w", err)
	}

	devices := map[string]map[string]string{}
	if err := json.Unmarshal(data, &devices); err != nil {
		return fmt.Errorf("failed to parse published state: %w", err)
	}

	for deviceId, capabilities := range devices {
		deviceSection := section.Section(deviceId)

		for capability, value := range capabilities {
			deviceSection.Set(capability, value)
		}
	}

	return nil
}

func savePublished(path string, section persistence.Section) error {
	devices := map[string]map[string]string{}

	for _, deviceId := range section.SectionKeys() {
		deviceSection := section.Section(deviceId)
		capabilities := map[string]string{}

		for _, capability := range deviceSection.Keys() {
			if value, found := deviceSection.String(capability); found {
				capabilities[capability] = value
			}
		}

		devices[deviceId] = capabilities
	}

	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal published state: %w", err)
	}

	if err := safeWriteFile(path, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("failed to write published state: %w", err)
	}

	return nil
}

func initialisePublishedStore(l logwrap.Logger, dir string, section persistence.Section) (func(), error) {
	stateFile := filepath.Join(dir, "published.json")

	if err := loadPublished(stateFile, section); err != nil {
		return func() {}, err
	}

	if err := savePublished(stateFile, section); err != nil {
		return func() {}, fmt.Errorf("failed initial save of published state: %w", err)
	}

	shutCh := make(chan struct{}, 1)

	go func() {
		t := time.NewTicker(1 * time.Minute)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				if err := savePublished(stateFile, section); err != nil {
					l.LogError(context.Background(), "Failed to periodically save published state.", logwrap.Err(err))
				}
			case <-shutCh:
				if err := savePublished(stateFile, section); err != nil {
					l.LogError(context.Background(), "Failed to save published state at shutdown.", logwrap.Err(err))
				}
				return
			}
		}
	}()

	return func() {
		shutCh <- struct{}{}
	}, nil
}
