// Package all registers every console command group.
package all

import (
	_ "github.com/robotalks/bms.go/pkg/cli/cmds/chain"
)
