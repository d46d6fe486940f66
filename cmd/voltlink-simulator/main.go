// Command voltlink-simulator runs a simulated VoltLink charger: a login
// endpoint plus the matching mDNS advertisement. Useful for exercising the
// onboarding CLI and the hub integration without hardware.
//
// Usage:
//
//	voltlink-simulator [flags]
//
// Flags:
//
//	-listen string     Listen address (default "0.0.0.0:8743")
//	-password string   Charger password (default "voltlink")
//	-serial string     Serial number (default "VL-SIM-0001"; empty simulates
//	                   firmware that reports no identity)
//	-name string       Advertised device name (default "Simulated Charger")
//	-no-mdns           Disable the mDNS advertisement
//	-log-level string  Log level: debug, info, warn, error (default "info")
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/voltlink/voltlink-go/pkg/charger"
	"github.com/voltlink/voltlink-go/pkg/discovery"
)

func main() {
	listen := flag.String("listen", "0.0.0.0:8743", "listen address")
	password := flag.String("password", "voltlink", "charger password")
	serial := flag.String("serial", "VL-SIM-0001", "serial number (empty simulates missing identity)")
	name := flag.String("name", "Simulated Charger", "advertised device name")
	noMDNS := flag.Bool("no-mdns", false, "disable the mDNS advertisement")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var lvl slog.Level
	switch strings.ToLower(*logLevel) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	sim := charger.NewSimulator(charger.SimulatorConfig{
		ListenAddress: *listen,
		Password:      *password,
		Serial:        *serial,
		Capabilities:  []string{"charging", "metering"},
		Logger:        logger,
	})
	if err := sim.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer sim.Stop()

	if !*noMDNS {
		advertiser := discovery.NewMDNSAdvertiser(discovery.AdvertiserConfig{})
		err := advertiser.Advertise(fmt.Sprintf("VoltLink-%s", *serial), sim.Port(), &discovery.Advertisement{
			Serial:     *serial,
			Brand:      "VoltLink",
			Model:      "SIM-1",
			Firmware:   "0.1.0",
			DeviceName: *name,
		})
		if err != nil {
			logger.Warn("mDNS advertisement failed; simulator reachable by address only", "error", err)
		} else {
			defer advertiser.Stop()
		}
	}

	logger.Info("simulator running", "address", *listen, "serial", *serial)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
}
