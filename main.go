package main

import (
	"log"

	"github.com/velora-ai/velora/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
