// Command csp runs the Communication Switch Process: the central star
// arbiter that every Station Process connects to.
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/chaseleif/starswitch/internal/netio"
	"github.com/chaseleif/starswitch/pkg/config"
	"github.com/chaseleif/starswitch/pkg/switchcore"
)

func main() {
	port := flag.Int("p", 0, "TCP port to listen on (required)")
	host := flag.String("h", "0.0.0.0", "interface to bind")
	configPath := flag.String("config", "", "optional ini file overriding queue sizes and timing")
	outPath := flag.String("out", "", "log file path, defaults to stdout")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *port == 0 {
		fmt.Fprintln(os.Stderr, "csp: -p <port> is required")
		os.Exit(1)
	}

	logger := log.New()
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if *outPath != "" {
		f, err := os.OpenFile(*outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "csp: open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetOutput(f)
	}
	entry := logger.WithField("component", "csp")

	cfg, err := config.Load(*configPath)
	if err != nil {
		entry.WithError(err).Fatal("loading config failed")
	}

	sw := switchcore.New(cfg, entry, netio.DefaultTuneOptions)
	addr := fmt.Sprintf("%s:%d", *host, *port)
	entry.Infof("listening on %s", addr)
	if err := sw.Run(addr); err != nil {
		entry.WithError(err).Fatal("csp exited with error")
	}
	entry.Info("csp exited cleanly")
}
