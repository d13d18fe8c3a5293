// Command calltrack activates CallTrack Pro on this machine and lets an
// operator mint license keys.
package main

import (
	"context"
	"os"
)

func main() {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
