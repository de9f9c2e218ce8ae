// Command netengine is a CLI front end for the multiplexed HTTP client
// engine in internal/engine: send one-off requests (optionally cancelling
// one that has not completed by a --cancel-after deadline), and report pool
// occupancy, driven by cobra the way the teacher's
// own CLI entry point was.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/netengine/netengine/internal/config"
	"github.com/netengine/netengine/internal/engine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "netengine",
		Short: "netengine drives the multiplexed HTTP client engine",
		Long: `netengine is a command-line front end for a pool-based, multiplexed
HTTP client engine: it sends one request at a time from the command line and
prints the terminal result, for scripting and manual exercise of the engine.`,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newSendCmd(&configPath))
	root.AddCommand(newStatusCmd(&configPath))

	return root
}

// loadEngine builds a Config and a started Engine from the shared --config
// flag, the way the teacher's CLI resolved its orchestrator config before
// constructing the orchestrator.
func loadEngine(configPath string) (*engine.Engine, *config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg = config.DefaultConfig()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)

	var locator engine.CABundleLocator
	if cfg.TLS.CABundlePath != "" {
		path := cfg.TLS.CABundlePath
		locator = func() (string, bool) { return path, true }
	}

	eng := engine.New(engine.Config{
		MaxRequestsCount:        cfg.Pool.MaxRequestsCount,
		Verbose:                 cfg.Verbose,
		Logger:                  logger,
		InsecureSkipVerify:      cfg.TLS.InsecureSkipVerify,
		CABundleLocator:         locator,
		AdmissionCapacity:       cfg.Admission.Capacity,
		AdmissionRefillRate:     cfg.Admission.RefillRate,
		AdmissionRefillInterval: cfg.Admission.RefillInterval(),
	})
	eng.Initialize()
	return eng, cfg, nil
}
