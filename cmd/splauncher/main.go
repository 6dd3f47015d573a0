// Command splauncher is a minimal convenience wrapper that forks one sp
// subprocess per Station Process instead of requiring the operator to
// start each one by hand. Process orchestration itself is out of this
// system's core scope; this is a thin convenience layer over os/exec.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"
)

func main() {
	n := flag.Int("n", 0, "cluster size, the number of sp processes to launch (required)")
	inPrefix := flag.String("in", "", "command file path prefix; sp i reads <prefix><i>, omitted entirely if empty")
	outPrefix := flag.String("out", "", "log file path prefix; sp i writes <prefix><i>.log, stdout if empty")
	spBin := flag.String("sp-bin", "sp", "path to the sp binary")
	verbose := flag.Bool("v", false, "pass -v through to every sp")
	flag.Parse()

	if *n <= 0 || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: splauncher -n <count> [flags] <csp-host:port>")
		os.Exit(1)
	}
	cspAddr := flag.Arg(0)

	logger := log.New().WithField("component", "splauncher")

	var wg sync.WaitGroup
	exitCodes := make([]int, *n)
	for i := 0; i < *n; i++ {
		args := []string{
			"-id", strconv.Itoa(i),
			"-n", strconv.Itoa(*n),
			"-csp", cspAddr,
		}
		if *inPrefix != "" {
			args = append(args, "-in", fmt.Sprintf("%s%d", *inPrefix, i))
		}
		if *outPrefix != "" {
			args = append(args, "-out", fmt.Sprintf("%s%d.log", *outPrefix, i))
		}
		if *verbose {
			args = append(args, "-v")
		}

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := exec.Command(*spBin, args...)
			cmd.Stdout = os.Stdout
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				logger.WithError(err).Warnf("sp %d exited with error", i)
				exitCodes[i] = 1
				return
			}
			logger.Infof("sp %d exited cleanly", i)
		}(i)
	}
	wg.Wait()

	for _, code := range exitCodes {
		if code != 0 {
			os.Exit(1)
		}
	}
}
