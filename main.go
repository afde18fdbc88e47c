package main

import (
	"fmt"
	"log/slog"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/felixbrock/crayon/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		slog.Error(fmt.Sprintf("Error occured: %s", err.Error()))
		os.Exit(1)
	}
}
