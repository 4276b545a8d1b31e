package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the dispatcher until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConf()
		if err != nil {
			return err
		}
		slog.Debug("loaded configuration", "conf", conf)

		c, err := newCore(conf)
		if err != nil {
			return fmt.Errorf("error setting up the core: %w", err)
		}
		defer c.teardown()

		services := c.services(conf.Services)
		defer cleanupServices(services)

		if err := initServices(services); err != nil {
			return err
		}

		doneChan := make(chan struct{})
		var wg sync.WaitGroup
		for _, service := range services {
			wg.Add(1)
			go func() {
				defer wg.Done()
				service.Run(doneChan)
			}()
		}

		slog.Info("dispatcher running", "families", c.registry.Len(), "services", len(services))

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		sig := <-sigChan
		slog.Info("caught a signal, shutting down", "signal", sig)

		close(doneChan)
		wg.Wait()

		return nil
	},
}

func loadConf() (*Config, error) {
	if confPathFlag == "" {
		return DefaultConf(), nil
	}

	conf, err := ReadConf(confPathFlag)
	if err != nil {
		return nil, fmt.Errorf("error loading %q: %w", confPathFlag, err)
	}

	return conf, nil
}
