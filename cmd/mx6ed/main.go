// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command mx6ed is the translation gateway daemon: it loads a
// configuration file, creates the two tunnel TAP devices, and runs the
// forwarding workers and the control loop until shutdown.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"grimm.is/mx6e/internal/addr6"
	"grimm.is/mx6e/internal/config"
	"grimm.is/mx6e/internal/ctlplane"
	"grimm.is/mx6e/internal/forward"
	"grimm.is/mx6e/internal/logging"
	"grimm.is/mx6e/internal/netutil"
	"grimm.is/mx6e/internal/route"
	"grimm.is/mx6e/internal/rule"
	"grimm.is/mx6e/internal/ruletable"
	"grimm.is/mx6e/internal/stats"
	"grimm.is/mx6e/internal/tapdev"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.StringP("config", "f", "/etc/mx6e/mx6e.conf", "configuration file path")
	metricsAddr := pflag.String("metrics-addr", ":9100", "Prometheus /metrics listen address")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}

	logWriter, closeLog, err := openLogWriter(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return -1
	}
	defer closeLog()

	logger := logging.New(logWriter, cfg.ProcessName)
	logger.SetDebug(cfg.DebugLog)

	// The virtual MAC is seeded from the configured physical interface
	// name rather than the TAP's kernel-assigned name, so it stays
	// stable across restarts instead of following whatever name the
	// kernel happens to hand back this time.
	tapPR, macPR, err := createTunnel(cfg.TunnelPR, "pr", cfg.NamePR)
	if err != nil {
		logger.Errorf("create tunnel_pr: %v", err)
		return -1
	}
	defer tapPR.Close()

	tapFP, macFP, err := createTunnel(cfg.TunnelFP, "fp", cfg.NameFP)
	if err != nil {
		logger.Errorf("create tunnel_fp: %v", err)
		return -1
	}
	defer tapFP.Close()

	prIfindex, err := ifindexOf(tapPR.Name())
	if err != nil {
		logger.Errorf("resolve ifindex for %s: %v", tapPR.Name(), err)
		return -1
	}
	fpIfindex, err := ifindexOf(tapFP.Name())
	if err != nil {
		logger.Errorf("resolve ifindex for %s: %v", tapFP.Name(), err)
		return -1
	}

	if cfg.StartupScript != "" {
		if err := runStartupScript(cfg, tapPR.Name(), tapFP.Name()); err != nil {
			logger.Errorf("startup_script: %v", err)
			return -1
		}
	}

	tunnelPRAddr, _, err := rule.ParseOutPrefix(cfg.IPv6AddressPR)
	if err != nil {
		logger.Errorf("[device] ipv6_address_pr: %v", err)
		return -1
	}
	var tunnelFPAddr addr6.Addr
	if cfg.IPv6AddressFP != "" {
		a, _, err := rule.ParseOutPrefix(cfg.IPv6AddressFP)
		if err != nil {
			logger.Errorf("[device] ipv6_address_fp: %v", err)
			return -1
		}
		tunnelFPAddr = a
	}

	domainRouter := route.DomainRouter{
		Shim:      route.NewShim(),
		PRIfindex: prIfindex,
		FPIfindex: fpIfindex,
	}

	m46e := ruletable.New(rule.KindM46E, domainRouter)
	me6e := ruletable.New(rule.KindME6E, domainRouter)
	m46e.SetLogger(logger)
	me6e.SetLogger(logger)

	counters := stats.New(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	workers := []*forward.Worker{
		{
			Domain: rule.DomainPR,
			In:     tapPR, Out: tapFP,
			InMAC: macPR, OutMAC: macFP,
			M46E: m46e, ME6E: me6e,
			Counters: counters, Logger: logger,
		},
		{
			Domain: rule.DomainFP,
			In:     tapFP, Out: tapPR,
			InMAC: macFP, OutMAC: macPR,
			M46E: m46e, ME6E: me6e,
			Counters: counters, Logger: logger,
		},
	}
	for _, w := range workers {
		wg.Add(1)
		go func(w *forward.Worker) {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Errorf("forward: %s worker exited: %v", w.Domain, err)
			}
		}(w)
	}

	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnf("metrics: server exited: %v", err)
		}
	}()

	dispatcher := &ctlplane.Dispatcher{
		M46E: m46e, ME6E: me6e,
		Config:   cfg,
		Counters: counters,
		Logger:   logger,
		TunnelPR: tunnelPRAddr,
		TunnelFP: tunnelFPAddr,
		Shutdown: cancel,
	}

	server := &ctlplane.Server{
		ProcessName: cfg.ProcessName,
		Handle:      dispatcher.Handle,
		Logger:      logger,
	}

	logger.Infof("started: tunnel_pr=%s tunnel_fp=%s", tapPR.Name(), tapFP.Name())

	serveErr := server.Serve(ctx)
	cancel()
	_ = metricsSrv.Close()
	// Closing the TAPs unblocks each worker's in-flight blocking read so
	// the loop actually observes the cancellation on its next iteration.
	_ = tapPR.Close()
	_ = tapFP.Close()
	wg.Wait()

	if serveErr != nil {
		logger.Errorf("control loop: %v", serveErr)
		return -1
	}
	logger.Infof("shutdown complete")
	return 0
}

func createTunnel(name, domain, macSeed string) (tapdev.Device, net.HardwareAddr, error) {
	dev, err := tapdev.Create(name)
	if err != nil {
		return nil, nil, err
	}
	return dev, net.HardwareAddr(netutil.GenerateVirtualMAC(domain, macSeed)), nil
}

// runStartupScript invokes the configured [general] startup_script
// after both TAP devices exist, so site-specific wiring (bridging a
// physical interface to a TAP, adding addresses) can reference the
// kernel-assigned TAP names. The physical interface names and both
// TAP names are passed as environment variables.
func runStartupScript(cfg *config.Config, tapPRName, tapFPName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, cfg.StartupScript)
	cmd.Env = append(os.Environ(),
		"MX6E_NAME_PR="+cfg.NamePR,
		"MX6E_NAME_FP="+cfg.NameFP,
		"MX6E_TUNNEL_PR="+tapPRName,
		"MX6E_TUNNEL_FP="+tapFPName,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", cfg.StartupScript, err, out)
	}
	return nil
}

// openLogWriter returns stderr, or a syslog connection when
// [general] syslog_enabled is set, plus a cleanup func to release it.
func openLogWriter(cfg *config.Config) (io.Writer, func() error, error) {
	if !cfg.SyslogEnabled {
		return os.Stderr, func() error { return nil }, nil
	}
	w, err := logging.NewSyslogWriter(logging.SyslogConfig{
		Enabled:  true,
		Host:     cfg.SyslogHost,
		Port:     cfg.SyslogPort,
		Protocol: cfg.SyslogProto,
		Tag:      cfg.ProcessName,
		Facility: logging.DefaultSyslogConfig().Facility,
	})
	if err != nil {
		return nil, nil, err
	}
	return w, w.Close, nil
}

func ifindexOf(name string) (int, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return 0, err
	}
	return iface.Index, nil
}
