package main

import (
	"os"
	"path"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/trititantech/server/pkg/commands"
	"github.com/trititantech/server/pkg/version"
	"github.com/urfave/cli/v2"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			// log panics forces exit
			if _, ok := r.(*logrus.Entry); ok {
				os.Exit(1)
			}
			panic(r)
		}
	}()

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("unable to load .env: %v", err)
	}

	app := cli.NewApp()
	app.Name = path.Base(os.Args[0])
	app.Usage = "Capture leads and serve a gated download"
	app.Version = version.Get().String()

	app.Commands = commands.GetCommands()
	app.CommandNotFound = func(context *cli.Context, command string) {
		logrus.Fatalf("Command %s not found.", command)
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
