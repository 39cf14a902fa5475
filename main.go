package main

import (
	"os"

	"github.com/smazurov/camspeed/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
