// main.go
//
// Entry point; every subcommand lives in cmd/.

package main

import (
	"github.com/section-assign/section-assign/cmd"
)

func main() {
	cmd.Execute()
}
