package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"smartnode-sim/internal/admin"
	"smartnode-sim/internal/config"
	"smartnode-sim/internal/connectivity"
	"smartnode-sim/internal/device"
	"smartnode-sim/internal/link"
	"smartnode-sim/internal/logging"
	"smartnode-sim/internal/store"
	"smartnode-sim/internal/telemetry"
)

var (
	runConfigPath string
	runSchemaPath string
	runTick       time.Duration
	runPrintOnly  bool
	runLogFile    string
	runTUI        bool
	runListen     string
	runLinkDelay  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulated device",
	Long:  "run boots the node: connectivity comes up from stored credentials or the setup access point, telemetry starts sampling, and the admin portal begins serving.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.New()

		cfg, err := config.Load(runConfigPath, runSchemaPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if runListen != "" {
			cfg.Admin.Listen = runListen
		}

		var st store.Store
		if cfg.StorePath == "" {
			st = store.NewMemory()
		} else {
			fs, err := store.OpenFile(cfg.StorePath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			st = fs
		}

		driver := link.NewSimDriver(cfg.AccessPoint.Address, runLinkDelay)
		for ssid, password := range parseNetworks(os.Getenv("SIM_NETWORKS")) {
			driver.AddNetwork(ssid, password)
		}

		portal := connectivity.NewDNSPortal(":"+strconv.Itoa(cfg.AccessPoint.DNSPort), log)
		conn := connectivity.NewManager(connectivity.Config{
			SSIDPrefix:        cfg.AccessPoint.SSIDPrefix,
			APPassword:        cfg.AccessPoint.Password,
			APChannel:         cfg.AccessPoint.Channel,
			APHidden:          cfg.AccessPoint.Hidden,
			APMaxClients:      cfg.AccessPoint.MaxClients,
			ConnectTimeout:    cfg.WiFi.ConnectTimeout,
			ReconnectInterval: cfg.WiFi.ReconnectInterval,
			MaxReconnects:     cfg.WiFi.MaxReconnects,
		}, driver, st, portal, log)

		eng := telemetry.NewEngine(cfg.Telemetry, log)

		hub := admin.NewHub(log)
		writer, cleanup, err := newWriters(cfg.DeviceName, hub, runPrintOnly, runLogFile, runTUI)
		if err != nil {
			return err
		}
		defer cleanup()

		host := device.NewHost(conn, eng, st, writer, cfg.DeviceName, runTick)

		ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), log))
		defer cancel()

		srv := admin.NewServer(host, hub, log)
		go func() {
			if err := srv.Start(cfg.Admin.Listen); err != nil {
				log.Error("admin server failed", "err", err)
			}
		}()

		go host.Run(ctx)

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		<-sigs

		cancel()
		if err := srv.Stop(5 * time.Second); err != nil {
			log.Error("admin server shutdown", "err", err)
		}
		log.Info("device stopped")
		return nil
	},
}

// parseNetworks reads "ssid:password,ssid2:password2". A missing
// password marks an open network.
func parseNetworks(env string) map[string]string {
	out := make(map[string]string)
	for _, entry := range strings.Split(env, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ssid, password, _ := strings.Cut(entry, ":")
		out[ssid] = password
	}
	return out
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "config/device.yaml", "Path to device configuration YAML")
	runCmd.Flags().StringVar(&runSchemaPath, "schema", "schemas/device.cue", "Path to CUE schema file")
	runCmd.Flags().DurationVar(&runTick, "tick", 100*time.Millisecond, "Host loop tick interval")
	runCmd.Flags().BoolVar(&runPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	runCmd.Flags().StringVar(&runLogFile, "log-file", "", "Path to export readings (JSONL)")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Render a terminal dashboard instead of plain output")
	runCmd.Flags().StringVar(&runListen, "listen", "", "Admin API listen address (overrides config)")
	runCmd.Flags().DurationVar(&runLinkDelay, "link-delay", 3*time.Second, "Simulated association latency")
}
