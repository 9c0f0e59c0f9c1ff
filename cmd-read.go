package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pgerbes1/kfs/btable"
	"github.com/pgerbes1/kfs/keyalg"
)

func newCmd_Read() *cli.Command {
	var outputPath string
	return &cli.Command{
		Name:        "read",
		Usage:       "Read a blob out of a table by its file key",
		Description: "Read a blob out of a table by its file key, writing to a file or stdout ('-')",
		ArgsUsage:   "<table-path> <key>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Usage:       "path to write the blob to; '-' or omitted writes to stdout",
				Value:       "-",
				Destination: &outputPath,
			},
		},
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

			r, err := t.CreateReadStream(c.Context, k)
			if err != nil {
				return err
			}
			defer r.Close()

			var out io.Writer = os.Stdout
			if outputPath != "-" && outputPath != "" {
				f, err := os.Create(outputPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			_, err = io.Copy(out, r)
			return err
		},
	}
}
