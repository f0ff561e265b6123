package main

import (
	_ "time/tzdata"

	"github.com/joshdurbin/komoot-stats/internal/cmd"
)

func main() {
	cmd.Execute()
}
