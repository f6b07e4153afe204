// Command healthcheck probes a storefront gRPC health endpoint and exits
// non-zero when it is not serving. It is meant for container HEALTHCHECKs.
package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/dmehra2102/storefront/internal/platform/config"
	"github.com/dmehra2102/storefront/internal/platform/grpcserver"
	"github.com/dmehra2102/storefront/pkg/logging"
)

func main() {
	cfg, _ := config.Load()
	log := logging.New("healthcheck", cfg.LogLevel)

	addr := cfg.GRPCAddr
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	service := ""
	if len(os.Args) > 2 {
		service = os.Args[2]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ok, err := grpcserver.Check(ctx, addr, service)
	if err != nil {
		log.Error("health check failed", "addr", addr, "err", err)
		os.Exit(1)
	}
	if !ok {
		log.Error("not serving", "addr", addr, "service", service)
		os.Exit(1)
	}
}
