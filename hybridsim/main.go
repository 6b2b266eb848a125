// Command hybridsim replays memory traces through a set-associative cache that
// uses the hybrid LRU/RRPV replacement policy.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/hybridpolicy/hybridsim/cmd"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
