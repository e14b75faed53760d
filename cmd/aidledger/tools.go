package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/warp/aid-ledger/ledger"
)

var sweepCommand = &cli.Command{
	Name:  "sweep",
	Usage: "Expire overdue vouchers once",
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := rt.ledger.SweepExpiredVouchers(c.Context)
		if err != nil {
			return err
		}
		rt.logger.WithField("expired", n).Info("voucher sweep finished")
		return nil
	},
}

var duplicatesCommand = &cli.Command{
	Name:  "duplicates",
	Usage: "Print pending cases that look like duplicates",
	Action: func(c *cli.Context) error {
		rt, err := setup(c)
		if err != nil {
			return err
		}
		defer rt.Close()

		report, err := rt.ledger.PendingDuplicates(c.Context)
		if err != nil {
			return err
		}
		for _, p := range report.Pairs {
			fmt.Printf("%s\t%s\t%s (%q / %q)\n", p.First.ID, p.Second.ID, p.Reason, p.First.BeneficiaryName, p.Second.BeneficiaryName)
		}
		return nil
	},
}

var idsCommand = &cli.Command{
	Name:  "ids",
	Usage: "Generate ids for use in fixtures",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "kind",
			Aliases: []string{"k"},
			Usage:   "One of AID, SCH, VCH, DON, RDM",
			Value:   string(ledger.KindCase),
		},
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"c"},
			Usage:   "Number of IDs to generate",
			Value:   1,
		},
	},
	Action: func(c *cli.Context) error {
		kind := ledger.IDKind(strings.ToUpper(c.String("kind")))
		switch kind {
		case ledger.KindCase, ledger.KindScheme, ledger.KindVoucher, ledger.KindDonation, ledger.KindRedemption:
		default:
			return fmt.Errorf("unknown id kind %q", kind)
		}

		var ids ledger.RandomIDs
		for i, n := 0, c.Int("count"); i < n; i++ {
			fmt.Println(ids.NewID(kind))
		}
		return nil
	},
}
