package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexknuckles/ultrasuite/cmd"
	"github.com/alexknuckles/ultrasuite/internal/buildinfo"
	"github.com/alexknuckles/ultrasuite/internal/conf"
	"github.com/alexknuckles/ultrasuite/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		return 1
	}

	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logger: %v\n", err)
		return 1
	}
	logger.SetGlobal(cl)
	defer func() {
		_ = cl.Close()
	}()

	root := cmd.RootCommand(settings, buildinfo.Current().String())
	if err := root.ExecuteContext(context.Background()); err != nil {
		cl.Module("main").Error("command failed", logger.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
