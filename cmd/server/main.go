package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/simp-lee/gymadmin/internal/app"
	"github.com/simp-lee/gymadmin/internal/config"
)

func main() {
	defaultPath := os.Getenv("GYMADMIN_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultPath, "path to configuration file (env GYMADMIN_CONFIG)")
	checkOnly := flag.Bool("check", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config %s: %v", *configPath, err)
	}
	if *checkOnly {
		fmt.Printf("%s ok: %s mode, %s database, auth enabled=%t, events=%s\n",
			*configPath, cfg.Server.Mode, cfg.Database.Driver, cfg.Auth.Enabled, cfg.Dashboard.Events.Driver)
		return
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}
	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}
