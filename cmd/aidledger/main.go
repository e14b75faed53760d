/*
main.go - Application entry point

PURPOSE:
  Command-line front end for the aid ledger: runs the HTTP server and the
  operational one-offs (seeding, voucher sweeps, duplicate checks, ids).

COMMANDS:
  serve        Start the HTTP server and the voucher sweeper
  seed         Load a demo scenario into the database
  sweep        Expire overdue vouchers once
  duplicates   Print possible duplicate pending cases
  ids          Generate ids for fixtures

ENVIRONMENT:
  All settings come from <PREFIX>_* variables (see config/config.go).
  The prefix defaults to AIDLEDGER and can be changed with --env-prefix.

EXAMPLES:
  # Run with an in-memory database
  AIDLEDGER_DATABASE_PATH=":memory:" ./aidledger serve

  # Seed the funding demo
  ./aidledger seed --scenario funding-drive

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
*/
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/warp/aid-ledger/config"
)

func main() {
	app := &cli.App{
		Name:  "aidledger",
		Usage: "Aid case ledger: cases, donations, vouchers and schemes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-prefix",
				Aliases: []string{"p"},
				Usage:   "Environment variable prefix",
				Value:   config.DefaultPrefix,
			},
		},
		Commands: []*cli.Command{
			serveCommand,
			seedCommand,
			sweepCommand,
			duplicatesCommand,
			idsCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("application failed")
	}
}
