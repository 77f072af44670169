package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/danmuck/can2mqtt/internal/config"
	"github.com/danmuck/can2mqtt/internal/convert"
	"github.com/danmuck/can2mqtt/internal/routing"
)

const defaultOutput = "cmd/can2mqtt/config.toml"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "configgen: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("configgen", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "toml", "template format: toml|yaml")
	output := fs.StringP("output", "o", "", "output path for config template")
	validate := fs.Bool("validate", false, "validate an existing config file")
	input := fs.StringP("input", "i", defaultOutput, "config path for validation")
	routes := fs.String("routes", "", "validate a route table file")
	force := fs.Bool("force", false, "overwrite existing config file")
	converters := fs.Bool("converters", false, "list converter names")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch {
	case *converters:
		for _, name := range convert.DefaultRegistry().Names() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	case *routes != "":
		gen, err := routing.LoadFile(*routes, convert.DefaultRegistry())
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Validated %d routes in %s\n", gen.Len(), *routes)
		return nil
	case *validate:
		if _, err := config.Load(*input); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Validated config at %s\n", *input)
		return nil
	}

	target := *output
	if target == "" {
		target = defaultOutput
		if *format == "yaml" || *format == "yml" {
			target = "cmd/can2mqtt/config.yaml"
		}
	}
	if err := config.WriteTemplate(target, *format, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s config template to %s\n", *format, target)
	return nil
}
