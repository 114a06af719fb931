package main

import (
	"github.com/spyglasshq/spyglass/cmd/spyglass/cmds"
)

func main() {
	cmds.Execute()
}
