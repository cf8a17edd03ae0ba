package main

import (
	"context"
	"flag"
	"minter/config"
	"minter/db"
	"minter/log"
	"minter/mail"
	"minter/rpc"
	"minter/tasks"
	"os"
	"os/signal"
	"syscall"
)

var (
	enableMail bool
	configDir  string
)

func init() {
	flag.BoolVar(&enableMail, "mail", false, "If mail alert is enabled")
	flag.StringVar(&configDir, "config", "", "Directory containing config file, defaults to ./config")
}

func main() {
	flag.Parse()

	log.Init()
	if configDir != "" {
		config.Load(true, configDir)
	} else {
		config.Load(true)
	}
	db.Init()
	mail.Init(enableMail)

	defer mail.AlertIfErr()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pick up edited rpc_url lists while the run is in progress.
	config.OnReload(func() {
		if rpc.RefreshServers(ctx) < 0 {
			log.Error.Printf("None of the reloaded rpc servers is reachable")
			rpc.PrintServerStatus()
		}
	})

	if _, err := tasks.Run(ctx); err != nil {
		panic(err)
	}
}
