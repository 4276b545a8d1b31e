package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/scitags/genetlinkd/api"
	"github.com/scitags/genetlinkd/families/ctrl"
	"github.com/scitags/genetlinkd/families/echo"
	"github.com/scitags/genetlinkd/genl"
	"github.com/scitags/genetlinkd/nlmsg"
	"github.com/scitags/genetlinkd/pipe"
	"github.com/scitags/genetlinkd/transport"
	"github.com/scitags/genetlinkd/types"
)

// core bundles the registry, the dispatcher hooked into the loopback and
// the built-in families.
type core struct {
	registry   *genl.Registry
	dispatcher *genl.Dispatcher
	loopback   *transport.Loopback
	metrics    *prometheus.Registry

	ctrl *ctrl.Controller
	echo *echo.Echo
}

func newCore(conf *Config) (*core, error) {
	c := &core{
		registry: genl.NewRegistry(),
		loopback: transport.NewLoopback(conf.Transport),
		metrics:  prometheus.NewRegistry(),
	}

	c.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c.dispatcher = genl.NewDispatcher(c.registry, conf.Dispatcher)
	if err := c.dispatcher.RegisterMetrics(c.metrics); err != nil {
		return nil, fmt.Errorf("error registering dispatcher metrics: %w", err)
	}

	c.ctrl = ctrl.New(c.registry, conf.Families.Ctrl)
	if err := c.ctrl.Register(); err != nil {
		return nil, fmt.Errorf("error registering %s: %w", ctrl.Name, err)
	}

	if conf.Families.Echo != nil {
		c.echo = echo.New(c.registry, conf.Families.Echo)
		if err := c.echo.Register(); err != nil {
			return nil, fmt.Errorf("error registering the echo family: %w", err)
		}
	}

	c.loopback.RegisterOrReplaceHandler(nlmsg.ProtoGeneric, c.dispatcher.Receive)

	return c, nil
}

func (c *core) services(conf *ServicesConfig) []types.Service {
	services := []types.Service{}

	if conf.Api != nil {
		services = append(services, api.New(conf.Api, c.registry, c.metrics))
	}

	if conf.Np != nil {
		services = append(services, pipe.New(conf.Np, c.loopback))
	}

	return services
}

func (c *core) close() error {
	c.loopback.UnregisterHandler(nlmsg.ProtoGeneric)

	var errs []error
	if c.echo != nil {
		errs = append(errs, c.echo.Unregister())
	}
	errs = append(errs, c.ctrl.Unregister())

	return errors.Join(errs...)
}

// teardown closes c, logging whatever goes wrong.
func (c *core) teardown() {
	if err := c.close(); err != nil {
		slog.Error("error tearing down the core", "err", err)
	}
}
