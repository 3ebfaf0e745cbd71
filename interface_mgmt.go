package main

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	url2 "net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Loodyy/homebridge-switchbot/config"
	"github.com/Loodyy/homebridge-switchbot/history"
	"github.com/Loodyy/homebridge-switchbot/interface/http/pprof"
	v1 "github.com/Loodyy/homebridge-switchbot/interface/http/v1"
	"github.com/Loodyy/homebridge-switchbot/interface/mqtt"
	"github.com/Loodyy/homebridge-switchbot/interface/webhook"
	"github.com/Loodyy/homebridge-switchbot/reconcile"
	"github.com/Loodyy/homebridge-switchbot/registry"
	"github.com/Loodyy/homebridge-switchbot/state"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/mux"
	"github.com/shimmeringbee/logwrap"
	"github.com/shimmeringbee/logwrap/impl/nest"
)

type StartedInterface struct {
	Name     string
	Shutdown func() error
}

const DefaultMQTTEventDuration = 1 * time.Second

func loadInterfaceConfigurations(dir string) ([]config.InterfaceConfig, error) {
	if err := os.MkdirAll(dir, DefaultDirectoryPermissions); err != nil {
		return nil, fmt.Errorf("failed to ensure interface configuration directory exists: %w", err)
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory listing for interface configurations: %w", err)
	}

	var retCfgs []config.InterfaceConfig

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		fullPath := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(fullPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read interface configuration file '%s': %w", fullPath, err)
		}

		cfg := config.InterfaceConfig{
			Name: strings.TrimSuffix(file.Name(), filepath.Ext(file.Name())),
		}

		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse interface configuration file '%s': %w", fullPath, err)
		}

		retCfgs = append(retCfgs, cfg)
	}

	return retCfgs, nil
}

// constructHistory builds the history writer before the registry exists,
// since the reconciler fans out into it. Absent history configuration means
// history writes are a no-op.
func constructHistory(cfgs []config.InterfaceConfig, l logwrap.Logger) (reconcile.HistoryWriter, func()) {
	for _, cfg := range cfgs {
		hCfg, ok := cfg.Config.(*config.HistoryInterfaceConfig)
		if !ok {
			continue
		}

		wl := logwrap.New(nest.Wrap(l))
		wl.AddOptionsToLogger(logwrap.Source("history"), logwrap.Datum("interface", cfg.Name))

		w := history.NewWriter(hCfg.URL, hCfg.Token, hCfg.Org, hCfg.Bucket, wl)
		return w, w.Stop
	}

	return reconcile.NullHistoryWriter, func() {}
}

func startInterfaces(cfgs []config.InterfaceConfig, reg *registry.Registry, eventBus *state.EventBus, l logwrap.Logger) ([]StartedInterface, error) {
	var retIfs []StartedInterface

	for _, cfg := range cfgs {
		wl := logwrap.New(nest.Wrap(l))
		wl.AddOptionsToLogger(logwrap.Datum("interface", cfg.Name))

		var shutdown func() error
		var err error

		switch iCfg := cfg.Config.(type) {
		case *config.MQTTInterfaceConfig:
			wl.AddOptionsToLogger(logwrap.Source("mqtt"))
			shutdown, err = startMQTTInterface(*iCfg, reg, eventBus, wl)
		case *config.WebhookInterfaceConfig:
			wl.AddOptionsToLogger(logwrap.Source("webhook"))
			shutdown, err = startWebhookInterface(*iCfg, reg, wl)
		case *config.HTTPInterfaceConfig:
			wl.AddOptionsToLogger(logwrap.Source("http"))
			shutdown, err = startHTTPInterface(*iCfg, reg, wl)
		case *config.HistoryInterfaceConfig:
			// Started ahead of the registry by constructHistory.
			continue
		default:
			err = fmt.Errorf("unknown interface type loaded: %s", cfg.Type)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to start interface '%s': %w", cfg.Name, err)
		}

		retIfs = append(retIfs, StartedInterface{
			Name:     cfg.Name,
			Shutdown: shutdown,
		})
	}

	return retIfs, nil
}

func startWebhookInterface(cfg config.WebhookInterfaceConfig, reg *registry.Registry, l logwrap.Logger) (func() error, error) {
	r := webhook.ConstructRouter(reg, l)

	bindAddress := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: bindAddress, Handler: r}

	l.LogInfo(context.Background(), "Mounting webhook receiver.", logwrap.Datum("address", bindAddress))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.LogError(context.Background(), "Failed to start webhook http server.", logwrap.Err(err))
		}
	}()

	return func() error {
		return srv.Shutdown(context.Background())
	}, nil
}

func startHTTPInterface(cfg config.HTTPInterfaceConfig, reg *registry.Registry, l logwrap.Logger) (func() error, error) {
	r := mux.NewRouter()
	r.PathPrefix("/api/v1").Handler(http.StripPrefix("/api/v1", v1.ConstructRouter(reg, reg, l)))

	if cfg.EnablePprof {
		r.PathPrefix("/pprof").Handler(http.StripPrefix("/pprof", pprof.ConstructRouter()))
	}

	bindAddress := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: bindAddress, Handler: r}

	l.LogInfo(context.Background(), "Mounting local REST API.", logwrap.Datum("address", bindAddress))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.LogError(context.Background(), "Failed to start api http server.", logwrap.Err(err))
		}
	}()

	return func() error {
		return srv.Shutdown(context.Background())
	}, nil
}

func awaitToken(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return context.DeadlineExceeded
	}
}

func startMQTTInterface(cfg config.MQTTInterfaceConfig, reg *registry.Registry, eventBus *state.EventBus, l logwrap.Logger) (func() error, error) {
	clientId, err := randomClientID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate random client id: %w", err)
	}

	l.LogInfo(context.Background(), "Constructing new MQTT client.", logwrap.Datum("clientId", clientId), logwrap.Datum("server", cfg.Server))

	clientOptions := pahomqtt.NewClientOptions()
	clientOptions.ClientID = clientId

	if url, err := url2.Parse(cfg.Server); err != nil {
		l.LogError(context.Background(), "Failed to parse MQTT server URL.", logwrap.Err(err))
		return nil, err
	} else {
		clientOptions.Servers = []*url2.URL{url}
	}

	i := mqtt.Interface{
		Devices:               reg,
		Commander:             reg,
		EventSubscriber:       eventBus,
		Logger:                l,
		Publisher:             mqtt.EmptyPublisher,
		PublishStateOnConnect: cfg.PublishStateOnConnect,
	}

	lastWillTopic := prefixTopic(cfg.TopicPrefix, "controller/online")

	clientOptions.OnConnect = func(client pahomqtt.Client) {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultMQTTEventDuration)
		defer cancel()

		l.LogInfo(context.Background(), "MQTT client successfully connected.", logwrap.Datum("clientId", clientId), logwrap.Datum("server", cfg.Server))

		subTopic := prefixTopic(cfg.TopicPrefix, "command/+")
		subscribeToken := client.Subscribe(subTopic, 0, func(client pahomqtt.Client, message pahomqtt.Message) {
			ctx, cancel := context.WithTimeout(context.Background(), DefaultMQTTEventDuration)
			defer cancel()

			if err := i.IncomingMessage(ctx, stripPrefixTopic(cfg.TopicPrefix, message.Topic()), message.Payload()); err != nil {
				l.LogError(ctx, "Failed to handle incoming message.", logwrap.Datum("topic", message.Topic()), logwrap.Err(err))
			}
		})

		if err := awaitToken(ctx, subscribeToken); err != nil {
			l.LogError(ctx, "Failed to subscribe to topic in MQTT.", logwrap.Datum("topic", subTopic), logwrap.Err(err))
		}

		client.Publish(lastWillTopic, cfg.QOS, cfg.Retained, `true`)

		if err := i.Connected(context.Background(), func(ctx context.Context, topic string, payload []byte) error {
			prefixedTopic := prefixTopic(cfg.TopicPrefix, topic)

			token := client.Publish(prefixedTopic, cfg.QOS, cfg.Retained, payload)
			if err := awaitToken(ctx, token); err != nil {
				l.LogError(ctx, "Failed to publish message to MQTT.", logwrap.Datum("topic", prefixedTopic), logwrap.Err(err))
				return err
			}

			return nil
		}); err != nil {
			l.LogError(context.Background(), "Failed to execute connection handler in MQTT interface.", logwrap.Err(err))
		}
	}

	clientOptions.SetConnectionLostHandler(func(client pahomqtt.Client, err error) {
		l.LogInfo(context.Background(), "MQTT client disconnected.", logwrap.Datum("clientId", clientId), logwrap.Datum("server", cfg.Server), logwrap.Err(err))
		i.Disconnected()
	})

	clientOptions.SetWill(lastWillTopic, `false`, cfg.QOS, cfg.Retained)

	if cfg.Credentials != nil {
		clientOptions.SetUsername(cfg.Credentials.Username)
		clientOptions.SetPassword(cfg.Credentials.Password)
	}

	if cfg.TLS != nil {
		tlsConfig := &tls.Config{InsecureSkipVerify: cfg.TLS.SkipCertificateVerification}

		if cfg.TLS.SkipCertificateVerification {
			l.LogWarn(context.Background(), "Set to ignore remote TLS certificate, this is considered insecure.")
		}

		if len(cfg.TLS.Cert) > 0 {
			cert, err := tls.LoadX509KeyPair(cfg.TLS.Cert, cfg.TLS.Key)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate pair: %w", err)
			}

			tlsConfig.Certificates = []tls.Certificate{cert}
		}

		if !cfg.TLS.IgnoreSystemRootCertificates {
			if pool, err := x509.SystemCertPool(); err == nil {
				tlsConfig.RootCAs = pool
			}
		} else {
			tlsConfig.RootCAs = x509.NewCertPool()
		}

		if len(cfg.TLS.CACert) > 0 {
			caCert, err := os.ReadFile(cfg.TLS.CACert)
			if err != nil {
				return nil, fmt.Errorf("failed to load ca certificate: %w", err)
			}

			tlsConfig.RootCAs.AppendCertsFromPEM(caCert)
		}

		clientOptions.SetTLSConfig(tlsConfig)
	}

	clientOptions.SetAutoReconnect(true)

	i.Start()

	client := pahomqtt.NewClient(clientOptions)
	connectToken := client.Connect()

	go func() {
		if err := awaitToken(context.Background(), connectToken); err != nil {
			l.LogError(context.Background(), "Failed initial connection to MQTT broker.", logwrap.Err(err))
		}
	}()

	return func() error {
		client.Disconnect(uint(DefaultMQTTEventDuration.Milliseconds()))
		i.Stop()
		return nil
	}, nil
}

func prefixTopic(prefix string, topic string) string {
	if prefix == "" {
		return topic
	}

	return fmt.Sprintf("%s/%s", prefix, topic)
}

func stripPrefixTopic(prefix string, topic string) string {
	if prefix == "" {
		return topic
	}

	return strings.TrimPrefix(topic, fmt.Sprintf("%s/", prefix))
}

func randomClientID() (string, error) {
	id := make([]byte, 8)

	if _, err := rand.Read(id); err != nil {
		return "", err
	}

	return fmt.Sprintf("switchbot-%s", hex.EncodeToString(id)), nil
}
