// Package main provides a standalone mock of the UptimeSquirrel agent API
// for local development: point an agent at it and watch what arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/agent"
	"github.com/Scripted-Ventures-NZ/uptimesquirrel-agent/internal/mockapi"
)

func main() {
	addr := flag.String("addr", ":8900", "HTTP server address")
	agentKey := flag.String("agent-key", "", "require this X-Agent-Key on every request")
	thresholdVersion := flag.Int64("threshold-version", 0, "serve remote thresholds with this version (0 = no remote config)")
	flag.Parse()

	config := mockapi.DefaultConfig()
	config.Addr = *addr
	config.AgentKey = *agentKey
	if *thresholdVersion > 0 {
		config.RemoteConfig = &agent.RemoteConfig{
			ThresholdVersion:     *thresholdVersion,
			Thresholds:           map[string]float64{"cpu": 75, "memory": 80, "disk": 85},
			CheckIntervalSeconds: 60,
		}
	}

	server := mockapi.New(config)

	if err := server.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting mock API: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Mock agent API listening on %s\n", server.Addr())
	fmt.Printf("Base URL: %s\n", server.BaseURL())
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Stop(ctx)

	fmt.Printf("Recorded %d samples, %d alerts, %d registrations\n",
		len(server.Samples()), len(server.Alerts()), len(server.Registrations()))
}
