package main

import (
	"os"

	"github.com/conduitcms/composer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
