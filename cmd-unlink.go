package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/pgerbes1/kfs/btable"
	"github.com/pgerbes1/kfs/keyalg"
)

func newCmd_Unlink() *cli.Command {
	return &cli.Command{
		Name:        "unlink",
		Usage:       "Delete a blob from a table by its file key",
		Description: "Delete a blob from a table by its file key. Idempotent: unlinking an absent key is not an error.",
		ArgsUsage:   "<table-path> <key>",
		Action: func(c *cli.Context) error {
			tablePath := c.Args().Get(0)
			if tablePath == "" {
				return fmt.Errorf("missing <table-path>")
			}
			k, err := keyalg.Parse(c.Args().Get(1))
			if err != nil {
				return err
			}

			t, err := btable.Open(tablePath)
			if err != nil {
				return err
			}
			defer t.Close()

			if err := t.Unlink(k); err != nil {
				return err
			}
			klog.V(1).Infof("unlinked key %s", k)
			return nil
		},
	}
}
