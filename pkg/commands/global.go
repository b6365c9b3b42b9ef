package commands

import (
	"fmt"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func GlobalFlags() []cli.Flag {
	globalFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log Level: trace, debug, info, warn or error",
			Aliases: []string{"l"},
			EnvVars: []string{"LOGLEVEL"},
			Value:   "info",
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format: json or text",
			EnvVars: []string{"LOGFORMAT"},
			Value:   "json",
		},
		&cli.BoolFlag{
			Name:  "log-caller",
			Usage: "log the caller (aka line number and file)",
		},
	}

	return globalFlags
}

// Before configures the process-wide logrus logger from the global flags.
func Before(c *cli.Context) error {
	callerPrettyfier := func(f *runtime.Frame) (string, string) {
		return "", fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
	}

	switch c.String("log-format") {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{CallerPrettyfier: callerPrettyfier})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, CallerPrettyfier: callerPrettyfier})
	default:
		return fmt.Errorf("unsupported log-format %q", c.String("log-format"))
	}

	logrus.SetReportCaller(c.Bool("log-caller"))

	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	return nil
}
