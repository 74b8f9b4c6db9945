package main

import (
	"github.com/robotalks/bms.go/pkg/bq/env"
	"github.com/robotalks/bms.go/pkg/cli/sh"

	_ "github.com/robotalks/bms.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
