package main

import (
	"os"

	"bikeshare-risk/cli"
)

func main() {
	os.Exit(cli.Execute())
}
