package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pgerbes1/kfs/btable"
	"github.com/pgerbes1/kfs/keyalg"
	"github.com/pgerbes1/kfs/sizefmt"
)

func newCmd_Stat() *cli.Command {
	var shardFlag int
	var humanReadable bool
	var allShards bool
	return &cli.Command{
		Name:        "stat",
		Usage:       "Print a shard's size/free-byte vector",
		Description: "Print one shard's size/free-byte vector, all shards, or the shard a key routes to.",
		ArgsUsage:   "<table-path> [key]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "shard",
				Usage:       "shard index to stat, instead of routing by key",
				Value:       -1,
				Destination: &shardFlag,
			},
			&cli.BoolFlag{
				Name:        "all",
				Usage:       "stat every shard",
				Destination: &allShards,
			},
			&cli.BoolFlag{
				Name:        "h",
				Usage:       "print sizes in human-readable form",
				Destination: &humanReadable,
			},
		},
		Action: func(c *cli.Context) error {
			tablePath := c.Args().Get(0)
			if tablePath == "" {
				return fmt.Errorf("missing <table-path>")
			}

			t, err := btable.Open(tablePath)
			if err != nil {
				return err
			}
			defer t.Close()

			// Bare invocation (no --shard, no --all, no key) defaults to
			// stat-all, per SPEC_FULL §4.3.
			if allShards || (shardFlag < 0 && c.Args().Get(1) == "") {
				stats, err := t.StatAll(c.Context)
				if err != nil {
					return err
				}
				for _, st := range stats {
					printShardStat(st, humanReadable)
				}
				return nil
			}

			var st btable.ShardStat
			if shardFlag >= 0 {
				if shardFlag > 255 {
					return fmt.Errorf("shard index %d out of range [0, 255]", shardFlag)
				}
				st, err = t.Stat(uint8(shardFlag))
			} else {
				var k keyalg.Key
				k, err = keyalg.Parse(c.Args().Get(1))
				if err != nil {
					return err
				}
				st, err = t.StatKey(k)
			}
			if err != nil {
				return err
			}
			printShardStat(st, humanReadable)
			return nil
		},
	}
}

func printShardStat(st btable.ShardStat, humanReadable bool) {
	if humanReadable {
		fmt.Printf("shard=%d size=%s free=%s perc=%.2f\n", st.Index, sizefmt.Bytes(st.Size), sizefmt.Bytes(st.Free), st.Perc)
		return
	}
	fmt.Printf("shard=%d size=%d free=%d perc=%.2f\n", st.Index, st.Size, st.Free, st.Perc)
}
