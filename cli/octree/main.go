// Package main is the octree command itself.
package main

import (
	"log"
	"os"

	"github.com/MisaelVM/octree/cli"
)

func main() {
	app := cli.NewApp(os.Stdout)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
