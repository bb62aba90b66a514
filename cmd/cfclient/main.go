// Command cfclient connects to a Crazyflie-class vehicle and prints a few
// telemetry lines to stdout until interrupted. It replaces the teacher's
// tcell-based TUI (stronnag-msp-go/main.go) with a plain stdout loop:
// spec.md's Non-goals exclude a ground-station GUI.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyharvill/gocrazyflie"
	"github.com/hyharvill/gocrazyflie/config"
	"github.com/hyharvill/gocrazyflie/telemetry"
	"github.com/hyharvill/gocrazyflie/transport"
)

func main() {
	cfgPath := flag.String("config", "", "INI config file (see config.Config)")
	devFlag := flag.String("device", "", "link device, overrides config [link].uri")
	baudFlag := flag.Int("baud", 0, "baud rate, overrides config [link].baud")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of cfclient [options]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *devFlag != "" {
		cfg.LinkURI = *devFlag
	}
	if *baudFlag > 0 {
		cfg.BaudRate = *baudFlag
	}
	if cfg.LinkURI == "" {
		fmt.Fprintln(os.Stderr, "no link device given (use -device or [link].uri in -config)")
		os.Exit(1)
	}

	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(cfg.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	metrics := telemetry.New(nil)

	dev, baud := cfg.LinkURI, cfg.BaudRate
	if i := strings.LastIndexByte(dev, '@'); i >= 0 {
		if b, err := strconv.Atoi(dev[i+1:]); err == nil && b > 0 {
			dev, baud = dev[:i], b
		}
	}

	t, err := transport.OpenSerial(dev, baud)
	if err != nil {
		logger.Error("open link", "err", err)
		os.Exit(1)
	}

	cf := crazyflie.New(cfg.CacheDir, logger, metrics)
	ready := cf.Connect(t)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-ready:
		if err != nil {
			logger.Error("connect", "err", err)
			os.Exit(1)
		}
	case <-sigCh:
		cf.Disconnect()
		return
	}

	logger.Info("connected",
		"flow_deck", cf.HasFlowDeck(),
		"multiranger_deck", cf.HasMultiRangerDeck(),
		"lighthouse_deck", cf.HasLighthouseDeck(),
		"servo_deck", cf.HasServoDeck(),
	)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			cf.Disconnect()
			return
		case <-ticker.C:
			x, y, z := cf.StateEstimate.Position()
			vbat := cf.PowerManagement.Vbat()
			fmt.Printf("pos=(%.2f,%.2f,%.2f) vbat=%.2fV\n", x, y, z, vbat)
		}
	}
}
