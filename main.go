package main

import (
	"log"

	"github.com/wikipuff/wikipuff/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
