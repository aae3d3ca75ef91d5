// Command cli-server is the headless chat server: no Fyne dependency,
// flag-driven, suitable for scripting and integration tests. It
// mirrors the GUI server's wiring in cmd/chat-server without the
// window.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rdtchat/internal/chatserver"
	"rdtchat/internal/config"
	"rdtchat/internal/logger"
	"rdtchat/internal/rdttrace"
)

func main() {
	host := flag.String("host", "0.0.0.0", "bind address")
	port := flag.Int("port", config.DefaultReceiverPort, "bind port")
	lossProb := flag.Float64("loss", config.DefaultChannelConfig().LossProb, "simulated packet loss probability")
	corruptProb := flag.Float64("corrupt", config.DefaultChannelConfig().CorruptProb, "simulated corruption probability")
	tracePath := flag.String("trace", "", "path to write a packet trace log (empty disables tracing)")
	logLevel := flag.String("log-level", "INFO", "DEBUG, INFO, WARN, ERROR")
	flag.Parse()

	lvl := parseLogLevel(*logLevel)
	log := logger.NewLogger(lvl, os.Stdout, "cli-server")

	var tr *rdttrace.Logger
	if *tracePath != "" {
		t, err := rdttrace.Open(*tracePath)
		if err != nil {
			log.Fatal("opening trace log: %v", err)
		}
		tr = t
		defer tr.Close()
	}

	channel := config.DefaultChannelConfig()
	channel.LossProb = *lossProb
	channel.CorruptProb = *corruptProb
	epCfg := config.DefaultEndpointConfig()

	srv := chatserver.New(*host, channel, epCfg, tr, log)

	go func() {
		if err := srv.Serve(*port); err != nil {
			log.Fatal("server stopped: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")
	time.Sleep(50 * time.Millisecond)
	fmt.Println("bye")
}

func parseLogLevel(s string) logger.LogLevel {
	switch s {
	case "DEBUG":
		return logger.DEBUG
	case "WARN":
		return logger.WARN
	case "ERROR":
		return logger.ERROR
	default:
		return logger.INFO
	}
}
