// fvmexec applies transactions to a genesis state with the fvm executor and
// reports the receipts.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"go.uber.org/automaxprocs/maxprocs"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log.file",
		Usage: "Write logs to a rotated file instead of the terminal",
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the state database (in-memory if empty)",
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Print receipts as JSON instead of a table",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "fvmexec",
		Usage: "execute transactions against a state with the fvm executor",
		Flags: []cli.Flag{
			configFileFlag,
			verbosityFlag,
			logFileFlag,
		},
		Before: func(ctx *cli.Context) error {
			if err := setupLogging(ctx.Int(verbosityFlag.Name), ctx.String(logFileFlag.Name)); err != nil {
				return err
			}
			// GOMAXPROCS sizes the simulation and prefetch worker pools.
			_, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
				log.Debug(fmt.Sprintf(format, args...))
			}))
			return err
		},
		Commands: []*cli.Command{
			runCommand,
			dumpConfigCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
