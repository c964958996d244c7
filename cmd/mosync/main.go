// Command mosync synchronizes the local inspection store into the central
// database.
package main

import (
	_ "time/tzdata"

	"github.com/tszyrowski/mosync/internal/cli"
)

func main() {
	cli.Execute()
}
