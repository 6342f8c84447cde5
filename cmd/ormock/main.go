// Command ormock validates mock models, runs resolution scenarios and
// inspects journaled traces.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ormock/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.GetExitCode(err))
}
