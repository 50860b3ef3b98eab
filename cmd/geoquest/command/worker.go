package command

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pixil98/go-geoquest/internal/api"
	"github.com/pixil98/go-geoquest/internal/console"
	"github.com/pixil98/go-geoquest/internal/driver"
	"github.com/pixil98/go-geoquest/internal/listener"
	"github.com/pixil98/go-geoquest/internal/messages"
	"github.com/pixil98/go-geoquest/internal/sensor"
	"github.com/pixil98/go-geoquest/internal/view"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	slog.SetLogLoggerLevel(cfg.logLevel())

	// Device samples arrive over the websocket bridge and travel on the embedded bus
	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	bridge, err := cfg.Device.buildBridge(natsServer)
	if err != nil {
		return nil, fmt.Errorf("creating device bridge: %w", err)
	}

	registry := view.NewRegistry()
	board := messages.NewBoard()
	metrics := api.NewMetrics(api.DefaultMetricsSize)

	basicAuth, err := cfg.Backend.buildAuth()
	if err != nil {
		return nil, fmt.Errorf("creating authenticator: %w", err)
	}
	client, err := cfg.Backend.buildClient(basicAuth, metrics)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	hub := cfg.Sensors.buildHub(sensor.NewNatsDevice(natsServer), registry, board)

	store, err := cfg.Sync.buildStore(client, basicAuth, hub, registry, board, cfg.Backend.Remember)
	if err != nil {
		return nil, fmt.Errorf("creating game state store: %w", err)
	}
	registry.Register(store)

	v, err := cfg.Views.buildViews(store, hub, registry)
	if err != nil {
		return nil, fmt.Errorf("creating views: %w", err)
	}

	sess := newSession(store, hub, cfg.Backend, v)
	registry.Register(sess)

	var driverOpts []driver.DriverOpt
	if d := cfg.tickInterval(); d > 0 {
		driverOpts = append(driverOpts, driver.WithTickLength(d))
	}
	drv := driver.NewDriver([]driver.Manager{store, board}, driverOpts...)

	workers := service.WorkerList{
		"nats":    natsServer,
		"device":  bridge,
		"sensors": hub,
		"store":   store,
		"session": sess,
		"driver":  drv,
	}
	if cfg.Console {
		workers["console"] = console.NewConsole(store, board, os.Stdin, os.Stdout, console.WithMetrics(metrics))
	}

	// Remote consoles
	cm := listener.NewConnectionManager(store, board, console.WithMetrics(metrics))
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		w, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = w
	}
	if len(listeners) > 0 {
		workers["listeners"] = &listeners
	}

	return workers, nil
}
