package main

import (
	"fmt"
	"log/slog"

	"github.com/scitags/genetlinkd/types"
)

func initServices(services []types.Service) error {
	for _, service := range services {
		if err := service.Init(); err != nil {
			return fmt.Errorf("error setting up service %s: %w", service, err)
		}
	}
	return nil
}

func cleanupServices(services []types.Service) {
	for _, service := range services {
		if err := service.Cleanup(); err != nil {
			slog.Error("error cleaning up service", "service", service, "err", err)
		}
	}
}
