package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rowbridge-dev/RowBridge-Engine/api"
)

func main() {
	addr := flag.String("addr", ":50051", "address for the convert service")
	metricsAddr := flag.String("metrics-addr", ":9090", "address for the metrics endpoint")
	flag.Parse()

	server := api.NewConvertServer()

	log.Printf("Starting convert server on %s...", *addr)
	if err := server.StartAsync(*addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	metrics := api.NewMetricsServer(*metricsAddr)
	metrics.StartAsync()
	log.Printf("Metrics available on %s/metrics", *metricsAddr)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	server.Stop()
	if err := metrics.Stop(); err != nil {
		log.Printf("Failed to stop metrics server: %v", err)
	}
	log.Println("Server stopped.")
}
