package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ndlib/vhandle/config"
	"github.com/ndlib/vhandle/internal/app"
	"github.com/ndlib/vhandle/internal/log"
	"github.com/ndlib/vhandle/server"
)

var (
	configFile = flag.String("config", "", "configuration file (TOML)")
	port       = flag.String("port", "", "port to listen on, overrides the configuration file")
	version    = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *version {
		fmt.Println(server.Version)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	a, err := app.Open(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer a.Close()

	var keys server.KeyChecker = server.OpenAccess{}
	if cfg.Server.Tokens != "" {
		keys, err = server.LoadKeyFile(cfg.Server.Tokens)
		if err != nil {
			log.Errorf("reading tokens %s: %v", cfg.Server.Tokens, err)
			os.Exit(1)
		}
	} else {
		log.Warnf("No token file given, every caller is an admin")
	}

	s := &server.RESTServer{
		PortNumber: cfg.Server.Port,
		PProfPort:  cfg.Server.PProfPort,
		Provider:   a.Provider,
		DB:         a.SQL(),
		Keys:       keys,
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Info("Shutting down")
		if err := s.Stop(); err != nil {
			log.Error(err)
		}
	}()

	if err := s.Run(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
