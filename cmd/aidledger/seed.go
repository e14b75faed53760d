package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/warp/aid-ledger/ledger"
	"github.com/warp/aid-ledger/seed"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Reset the database and load a demo scenario",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "scenario",
			Aliases: []string{"s"},
			Usage:   "Scenario id",
			Value:   "funding-drive",
		},
		&cli.BoolFlag{
			Name:  "list",
			Usage: "List scenarios and exit",
		},
	},
	Action: func(c *cli.Context) error {
		if c.Bool("list") {
			all, err := seed.List()
			if err != nil {
				return err
			}
			for _, sc := range all {
				fmt.Printf("%-20s %s\n", sc.ID, sc.Description)
			}
			return nil
		}

		sc, err := seed.Get(c.String("scenario"))
		if err != nil {
			return err
		}

		rt, err := setup(c, ledger.WithIDGenerator(ledger.NewSequenceIDs()))
		if err != nil {
			return err
		}
		defer rt.Close()

		res, err := seed.Apply(c.Context, rt.ledger, sc)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", sc.ID, err)
		}
		rt.logger.WithFields(logrus.Fields{
			"scenario":    res.Scenario,
			"cases":       res.Cases,
			"donations":   res.Donations,
			"vouchers":    res.Vouchers,
			"redemptions": res.Redemptions,
			"schemes":     res.Schemes,
		}).Info("scenario seeded")
		return nil
	},
}
