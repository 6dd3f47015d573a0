// Command sp runs a single Station Process: it connects to a running
// csp, then drives a command file (or, absent one, an interactive
// console) of Frame and Wait directives against it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/chaseleif/starswitch/pkg/config"
	"github.com/chaseleif/starswitch/pkg/station"
)

func openPayloadFile(path string) (io.ReadCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func main() {
	id := flag.Int("id", -1, "this SP's id (required)")
	n := flag.Int("n", 0, "cluster size, the total number of SPs (required)")
	cspAddr := flag.String("csp", "", "csp address, host:port (required)")
	inPath := flag.String("in", "", "command file path; an interactive console is used if omitted")
	outPath := flag.String("out", "", "log file path, defaults to stdout")
	configPath := flag.String("config", "", "optional ini file overriding queue sizes and timing")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *id < 0 || *n <= 0 || *cspAddr == "" {
		fmt.Fprintln(os.Stderr, "sp: -id, -n, and -csp are all required")
		os.Exit(1)
	}

	logger := log.New()
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}
	if *outPath != "" {
		f, err := os.OpenFile(*outPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sp %d: open log file: %v\n", *id, err)
			os.Exit(1)
		}
		defer f.Close()
		logger.SetOutput(f)
	}
	entry := logger.WithFields(log.Fields{"component": "sp", "sp_id": *id})

	cfg, err := config.Load(*configPath)
	if err != nil {
		entry.WithError(err).Fatal("loading config failed")
	}

	var commands io.Reader = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			entry.WithError(err).Fatal("opening command file failed")
		}
		defer f.Close()
		commands = f
	} else {
		entry.Info("no command file given, reading directives interactively from stdin")
	}

	st := station.New(*id, *n, cfg, entry, commands, openPayloadFile)
	if err := st.Dial(*cspAddr); err != nil {
		entry.WithError(err).Fatal("connecting to csp failed")
	}
	if err := st.Run(context.Background()); err != nil {
		entry.WithError(err).Fatal("sp exited with error")
	}
	entry.Info("sp exited cleanly")
}
