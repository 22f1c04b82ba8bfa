// h5records inspects HDF5 files and writes the demo records.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var versionGitCommit string
var versionBuildTime string

func newApp() *cli.App {
	app := &cli.App{
		Name:    "h5records",
		Usage:   "Inspect HDF5 record files",
		Version: fmt.Sprintf("%s.%s", versionGitCommit, versionBuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "Set log level (panic, fatal, error, warn, info, debug, trace)", EnvVars: []string{"H5RECORDS_LOG_LEVEL"}},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "Set log format (text, json)", EnvVars: []string{"H5RECORDS_LOG_FORMAT"}},
			&cli.StringFlag{Name: "config", TakesFile: true, Usage: "Read settings from a TOML config file", EnvVars: []string{"H5RECORDS_CONFIG"}},
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "dump",
			Usage:     "Print the groups, datasets and attributes of HDF5 files",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "values", Usage: "Print decoded element values"},
				&cli.IntFlag{Name: "max-values", Usage: "Print at most this many values per object, 0 for all"},
				&cli.IntFlag{Name: "jobs", Value: runtime.NumCPU(), Usage: "Number of files inspected concurrently"},
			},
			Action: func(c *cli.Context) error {
				cfg, err := configure(c)
				if err != nil {
					return err
				}
				if c.NArg() == 0 {
					return errors.New("dump: at least one FILE is required")
				}
				opts := dumpOptions{values: c.Bool("values"), maxValues: cfg.Dump.MaxValues}
				return dumpFiles(c.Context, c.App.Writer, c.Args().Slice(), opts, c.Int("jobs"))
			},
		},
		{
			Name:      "demo",
			Usage:     "Write the demo records to a new HDF5 file",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "group", Usage: "Write the records into this group instead of the root"},
			},
			Action: func(c *cli.Context) error {
				if _, err := configure(c); err != nil {
					return err
				}
				if c.NArg() != 1 {
					return errors.New("demo: exactly one FILE is required")
				}
				return writeDemo(c.App.Writer, c.Args().First(), c.String("group"))
			},
		},
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
