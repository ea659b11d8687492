// Package main provides the entry point for the imcreg command line.
package main

import (
	"log"

	"imcreg/internal/cli"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cli.Execute()
}
