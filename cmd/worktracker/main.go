// Command worktracker tracks work hours and shared finances for two people.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/worktracker/worktracker/internal/cli"
)

func main() {
	_ = godotenv.Load()
	os.Exit(cli.Execute())
}
