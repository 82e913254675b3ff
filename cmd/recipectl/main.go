// Command recipectl inspects and edits the local recipe data.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tbourn/go-recipe-backend/internal/cli"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	_ = godotenv.Load()
	if err := cli.Execute(version); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
