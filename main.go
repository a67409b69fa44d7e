package main

import (
	"os"

	"github.com/bd-migrate/bdmigrate/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
