// Command roaster records a coffee roast: it samples a bean probe, shows the
// curve live and ships the telemetry to a collector. It also serves as that
// collector and as a viewer for stored roasts.
//
//	roaster [run] [-config file] [-headless]   record a roast
//	roaster view [-dir path]                   browse stored roasts
//	roaster collect [-config file] [-addr :8080] [-broker host:port]
//	roaster probes                             list temperature probes
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: roaster <command> [flags]

commands:
  run       record a roast (default)
  view      browse stored roasts
  collect   receive telemetry batches and store them
  probes    list temperature probes on this machine
`)
}

func main() {
	args := os.Args[1:]
	cmd := "run"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "run":
		err = runCmd(args)
	case "view":
		err = viewCmd(args)
	case "collect":
		err = collectCmd(args)
	case "probes":
		err = probesCmd(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "roaster %s: %v\n", cmd, err)
		os.Exit(1)
	}
}
