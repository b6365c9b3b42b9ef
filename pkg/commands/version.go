package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/trititantech/server/pkg/version"
	"github.com/urfave/cli/v2"
)

func execute(c *cli.Context) error {
	v := version.Get()
	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(v)
	}

	fmt.Printf("%s %s\n", v, v.GoVersion)
	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "print version",
		Action: execute,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the version as JSON",
			},
		},
	}
}
