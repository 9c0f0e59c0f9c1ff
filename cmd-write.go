package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/pgerbes1/kfs/btable"
	"github.com/pgerbes1/kfs/keyalg"
)

func newCmd_Write() *cli.Command {
	var tablePath string
	var inputPath string
	return &cli.Command{
		Name:        "write",
		Usage:       "Write a blob into a table under a given file key",
		Description: "Write a blob into a table under a given file key, reading from a file or stdin ('-')",
		ArgsUsage:   "<table-path> <key>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "in",
				Usage:       "path to the file to write; '-' or omitted reads from stdin",
				Value:       "-",
				Destination: &inputPath,
			},
		},
		Before: func(c *cli.Context) error {
			tablePath = c.Args().Get(0)
			if tablePath == "" {
				return fmt.Errorf("missing <table-path>")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			k, err := keyalg.Parse(c.Args().Get(1))
			if err != nil {
				return err
			}

			t, err := btable.Open(tablePath)
			if err != nil {
				return err
			}
			defer t.Close()

			var in io.Reader = os.Stdin
			if inputPath != "-" && inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			w, err := t.CreateWriteStream(c.Context, k, -1)
			if err != nil {
				return err
			}
			if _, err := io.Copy(w, in); err != nil {
				_ = w.Close()
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}

			klog.V(1).Infof("wrote blob for key %s", k)
			return nil
		},
	}
}
