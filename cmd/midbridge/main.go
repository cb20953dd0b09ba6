package main

import (
	"context"
	"net"
	"os/signal"
	"syscall"

	"github.com/midauth/mobileid-bridge/config"
	"github.com/midauth/mobileid-bridge/rpc"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		panic(err)
	}

	s, err := rpc.New(cfg)
	if err != nil {
		panic(err)
	}
	defer s.Stop(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := cfg.Service.Addr
	if addr == "" {
		addr = ":8080"
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		panic(err)
	}

	if err := s.Run(ctx, l); err != nil {
		panic(err)
	}
}
