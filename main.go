package main

import (
	"os"

	"github.com/w31r4/gowhy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
