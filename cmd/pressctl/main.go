// Command pressctl is the command-line front end of the press engine.
package main

import (
	"os"

	"github.com/ibtissamelhani/induspress/cmd/pressctl/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
