package main

import (
	"os"

	"github.com/tomasstrnad1997/minesai/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
