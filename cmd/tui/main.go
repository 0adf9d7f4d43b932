package main

import (
	"fmt"
	"os"

	"todolist/internal/client"
	"todolist/internal/config"
	"todolist/internal/tui"
)

func main() {
	cfg, err := config.LoadClient(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	api := client.New(cfg.Client.BaseURL, cfg.Client.Timeout)
	if err := tui.Run(tui.Options{API: api, Timeout: cfg.Client.Timeout}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
