package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"
	"time"

	"gtasks/internal/config"
	"gtasks/internal/exitcode"
	"gtasks/internal/homeassistant"
	"gtasks/internal/integration"
	"gtasks/internal/mqtt"
	"gtasks/internal/service"
)

// shutdownTimeout bounds the offline publish and broker disconnect.
const shutdownTimeout = 5 * time.Second

func init() {
	Register(&RunCmd{})
}

// RunCmd implements the run command: the long-running bridge between the
// tracked list and Home Assistant.
type RunCmd struct{}

func (c *RunCmd) Name() string      { return "run" }
func (c *RunCmd) Aliases() []string { return []string{"serve"} }
func (c *RunCmd) Synopsis() string  { return "Poll the tracked list and serve Home Assistant" }
func (c *RunCmd) Usage() string     { return "gtasks run [common flags]" }
func (c *RunCmd) NeedsAuth() bool   { return true }

func (c *RunCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RunCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	log := cfg.Logger(errOut)

	inst, err := integration.Setup(ctx, cfg, svc, log)
	if err != nil {
		return report(errOut, err)
	}
	defer inst.Close()

	var bridge *mqtt.Bridge
	if cfg.MQTT.Configured() {
		instanceID, err := mqtt.LoadOrCreateInstanceID(cfg.DataDir)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		bridge = mqtt.New(cfg.MQTT, instanceID, Version,
			mqtt.Names{Sensor: cfg.Sensor.Name, BinarySensor: cfg.BinarySensor.Name},
			inst.Store, inst.Handlers, log.With("component", "mqtt"))
		if err := bridge.Start(ctx); err != nil {
			return report(errOut, err)
		}
	}

	var wg sync.WaitGroup
	if cfg.HomeAssistant.Configured() {
		listener := homeassistant.NewListener(cfg.HomeAssistant, inst.Handlers, log.With("component", "homeassistant"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Run(ctx); err != nil {
				log.Error("home assistant listener stopped", "error", err)
			}
		}()
	}

	log.Info("gtasks running", "version", Version, "list_id", inst.List.ID,
		"mqtt", cfg.MQTT.Configured(), "homeassistant", cfg.HomeAssistant.Configured())
	inst.Run(ctx)

	if bridge != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := bridge.Stop(stopCtx); err != nil {
			log.Warn("mqtt disconnect failed", "error", err)
		}
	}
	wg.Wait()

	log.Info("gtasks stopped")
	return exitcode.Success
}
