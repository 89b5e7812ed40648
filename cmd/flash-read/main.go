package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"flashread/internal/config"
	"flashread/internal/dumper"
)

func main() {
	settings, err := config.Load(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Flash Read : Error: %v\n", err)
		os.Exit(2)
	}

	cfg := dumper.Config{
		Settings:     settings,
		OutputWriter: os.Stdout,
		ErrorWriter:  os.Stderr,
	}

	if err := dumper.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Flash Read : Error: %v\n", err)
		os.Exit(1)
	}
}
