package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/pgerbes1/kfs/btable"
)

func newCmd_Compact() *cli.Command {
	return &cli.Command{
		Name:        "compact",
		Usage:       "Compact every shard of a table",
		Description: "Ask the underlying engine to repair/compact every shard directory, concurrently.",
		ArgsUsage:   "<table-path>",
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

			startedAt := time.Now()
			if err := t.Compact(c.Context); err != nil {
				return err
			}
			klog.Infof("compacted all shards in %s", time.Since(startedAt))
			return nil
		},
	}
}
