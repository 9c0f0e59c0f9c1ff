package main

import (
	"fmt"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"

	"github.com/pgerbes1/kfs/btable"
	"github.com/pgerbes1/kfs/keyalg"
	"github.com/pgerbes1/kfs/sizefmt"
)

func newCmd_List() *cli.Command {
	var shardFlag int
	var humanReadable bool
	var verbose bool
	return &cli.Command{
		Name:        "list",
		Usage:       "List the blobs held in one shard",
		Description: "List the blobs held in one shard, identified either by --shard index or by a file key that routes to it.",
		ArgsUsage:   "<table-path> [key]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "shard",
				Usage:       "shard index to list, instead of routing by key",
				Value:       -1,
				Destination: &shardFlag,
			},
			&cli.BoolFlag{
				Name:        "h",
				Usage:       "print sizes in human-readable form",
				Destination: &humanReadable,
			},
			&cli.BoolFlag{
				Name:        "v",
				Usage:       "dump the raw entry decomposition instead of a plain table",
				Destination: &verbose,
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

			var index uint8
			switch {
			case shardFlag >= 0:
				if shardFlag > 255 {
					return fmt.Errorf("shard index %d out of range [0, 255]", shardFlag)
				}
				index = uint8(shardFlag)
			case c.Args().Get(1) != "":
				k, err := keyalg.Parse(c.Args().Get(1))
				if err != nil {
					return err
				}
				index = t.ShardIndex(k)
			default:
				return fmt.Errorf("either --shard or a key argument is required")
			}

			entries, err := t.List(index)
			if err != nil {
				return err
			}
			if verbose {
				spew.Dump(entries)
				return nil
			}
			for _, e := range entries {
				if humanReadable {
					fmt.Printf("%s\t%s\n", e.BaseKey, sizefmt.Bytes(e.ApproxSize))
				} else {
					fmt.Printf("%s\t%s\n", e.BaseKey, strconv.FormatUint(e.ApproxSize, 10))
				}
			}
			return nil
		},
	}
}
