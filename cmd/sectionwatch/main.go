package main

import (
	"os"

	"github.com/endeavored/sectionwatch/internal/app/coursewatch/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
