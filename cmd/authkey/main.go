// Package main generates the bearer-token key and signs development tokens.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/shiftproof/shiftproof/internal/platform/config"
	"github.com/shiftproof/shiftproof/internal/tools/authkey"
)

func main() {
	cfg, err := authkey.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := authkey.Run(cfg, os.Stdout, nil, time.Now()); err != nil {
		config.Exitf("generate key: %v", err)
	}
}
