// Command idb-utils inspects and repairs InnoDB tablespace files offline.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/internal/config"
	"github.com/ringo380/idb-utils-sub001/internal/logging"
)

const version = "0.4.0"

// CLI is the kong command tree.
type CLI struct {
	Config    string `name:"config" short:"c" type:"path" help:"ini configuration file"`
	LogLevel  string `name:"log-level" help:"trace, debug, info, warn or error (overrides config)"`
	LogFormat string `name:"log-format" help:"text or json (overrides config)"`
	JSON      bool   `name:"json" help:"Print results as JSON"`
	PageSize  int    `name:"page-size" help:"Override the page size read from page 0"`
	Vendor    string `name:"vendor" help:"mysql, percona, mariadb or mariadb-full_crc32"`

	Info       InfoCmd       `cmd:"" help:"Show tablespace geometry and page type counts"`
	Page       PageCmd       `cmd:"" help:"Dump the headers of one page"`
	Checksum   ChecksumCmd   `cmd:"" help:"Validate page checksums and LSN mirrors"`
	Classify   ClassifyCmd   `cmd:"" help:"Label damaged pages with a likely corruption pattern"`
	Repair     RepairCmd     `cmd:"" help:"Recompute checksums of damaged pages in place"`
	Defrag     DefragCmd     `cmd:"" help:"Write a compacted copy of a tablespace"`
	Transplant TransplantCmd `cmd:"" help:"Copy pages from a donor tablespace into a target"`
	Version    VersionCmd    `cmd:"" help:"Print version information"`
}

// app carries the resolved configuration into every command.
type app struct {
	cfg    *config.Cfg
	out    io.Writer
	json   bool
	log    *logrus.Logger
	vendor *format.VendorInfo
	size   int
}

func (a *app) algorithm(flag string) (checksum.Algorithm, error) {
	if flag == "" {
		flag = a.cfg.RepairAlgorithm
	}
	return checksum.ParseAlgorithm(flag)
}

func newApp(cli *CLI, out io.Writer) (*app, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return nil, err
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = cli.LogFormat
	}
	if cli.PageSize != 0 {
		cfg.PageSize = cli.PageSize
	}
	if cli.Vendor != "" {
		cfg.Vendor = cli.Vendor
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Path: cfg.LogFile}); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, out: out, json: cli.JSON, log: logging.Logger(), size: cfg.PageSize}
	if cfg.Vendor != "" {
		v, ok := format.ParseVendor(cfg.Vendor)
		if !ok {
			return nil, errors.Errorf("unknown vendor %q", cfg.Vendor)
		}
		a.vendor = &v
	}
	return a, nil
}

func run(args []string, out io.Writer) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("idb-utils"),
		kong.Description("Offline InnoDB tablespace integrity and repair"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Writers(out, os.Stderr),
	)
	if err != nil {
		return err
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	a, err := newApp(&cli, out)
	if err != nil {
		return err
	}
	return ctx.Run(a)
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type VersionCmd struct{}

func (c *VersionCmd) Run(a *app) error {
	fmt.Fprintf(a.out, "idb-utils %s\n", version)
	return nil
}
