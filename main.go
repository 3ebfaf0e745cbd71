package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/Loodyy/homebridge-switchbot/reconcile"
	"github.com/Loodyy/homebridge-switchbot/registry"
	"github.com/Loodyy/homebridge-switchbot/state"
	"github.com/Loodyy/homebridge-switchbot/transport"
	lw "github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/golog"
	"github.com/shimmeringbee/persistence/impl/memory"
)

func main() {
	ctx := context.Background()
	l := lw.New(golog.Wrap(log.New(os.Stderr, "", log.LstdFlags)))

	l.LogInfo(ctx, "SwitchBot Controller - Starting...")

	directories := enumerateDirectories(ctx, l)

	l.LogInfo(ctx, "Directory enumeration complete.", lw.Datum("directories", directories))

	l, err := configureLogging(filepath.Join(directories.Config, "logging"), directories.Log, l)
	if err != nil {
		l.LogFatal(ctx, "Failed to configure logging.", lw.Err(err))
	}

	deviceCfgs, err := loadDeviceConfigurations(filepath.Join(directories.Config, "devices"))
	if err != nil {
		l.LogFatal(ctx, "Failed to load device configurations.", lw.Err(err))
	}

	interfaceCfgs, err := loadInterfaceConfigurations(filepath.Join(directories.Config, "interfaces"))
	if err != nil {
		l.LogFatal(ctx, "Failed to load interface configurations.", lw.Err(err))
	}

	cloudCfg, err := loadCloudConfiguration(filepath.Join(directories.Config, "cloud.json"))
	if err != nil {
		l.LogFatal(ctx, "Failed to load cloud configuration.", lw.Err(err))
	}

	l.LogInfo(ctx, "Loaded configuration.", lw.Datum("deviceCount", len(deviceCfgs)), lw.Datum("interfaceCount", len(interfaceCfgs)))

	eventBus := state.NewEventBus()

	publishedSection := memory.New()

	shutdownPublishedStore, err := initialisePublishedStore(l, directories.Data, publishedSection)
	if err != nil {
		l.LogFatal(ctx, "Failed to initialise published state store.", lw.Err(err))
	}

	historyWriter, shutdownHistory := constructHistory(interfaceCfgs, l)

	cloudClient := transport.NewAPIClient(cloudCfg.Token, cloudCfg.Secret, l)
	if !cloudClient.Credentialed() {
		l.LogWarn(ctx, "No cloud credential stored, cloud transport unavailable.")
	}

	var scanner transport.Scanner
	if raw := constructScanner(l); raw != nil {
		// The radio is a shared single channel resource; every scan is
		// serialized regardless of which device requested it.
		scanner = transport.NewSerialScanner(raw, l)
	} else {
		l.LogWarn(ctx, "No radio integration built in, radio transport unavailable.")
	}

	reconciler := reconcile.NewReconciler(characteristicSink{logger: l}, eventBus, historyWriter, l)

	l.LogInfo(ctx, "Initialising device registry.")
	reg := registry.NewRegistry(scanner, cloudClient, reconciler, eventBus, publishedSection, l)

	if err := registerDevices(deviceCfgs, reg); err != nil {
		l.LogFatal(ctx, "Failed to register devices.", lw.Err(err))
	}

	l.LogInfo(ctx, "Starting interfaces.")
	startedInterfaces, err := startInterfaces(interfaceCfgs, reg, eventBus, l)
	if err != nil {
		l.LogFatal(ctx, "Failed to start interfaces.", lw.Err(err))
	}

	l.LogInfo(ctx, "Controller ready.")

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, os.Kill)

	s := <-signalCh
	l.LogInfo(ctx, "Signal received, shutting down.", lw.Datum("signal", s.String()))

	for _, intf := range startedInterfaces {
		l.LogInfo(ctx, "Shutting down interface.", lw.Datum("interface", intf.Name))

		if err := intf.Shutdown(); err != nil {
			l.LogError(ctx, "Failed to shutdown interface.", lw.Err(err), lw.Datum("interface", intf.Name))
		}
	}

	l.LogInfo(ctx, "Shutting down device registry.")
	reg.Stop()

	l.LogInfo(ctx, "Shutting down history writer.")
	shutdownHistory()

	l.LogInfo(ctx, "Shutting down published state store.")
	shutdownPublishedStore()

	l.LogInfo(ctx, "Shut down complete.")
}
