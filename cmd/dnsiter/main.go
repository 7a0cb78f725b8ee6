// Command dnsiter serves A-record lookups over UDP, resolving each one by
// iteratively walking delegations from the root, the way a recursive
// resolver does, rather than forwarding to an upstream resolver.
//
// It takes no command-line flags: the listen address and static config path
// are fixed, and the binary simply runs the listener forever.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mprimi/dnsiter/config"
	"github.com/mprimi/dnsiter/engine"
	"github.com/mprimi/dnsiter/stats"
	"github.com/mprimi/dnsiter/transport"
	"github.com/mprimi/dnsiter/udpserver"
)

const (
	listenAddr = ":53"
	configPath = "dns.cfg"
)

func main() {
	static, err := config.Load(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	statsCounter := stats.New()
	client := transport.New(statsCounter)
	eng := engine.New(static, client).WithStats(statsCounter)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	statsCounter.StartPeriodicLogging(ctx, time.Minute)

	srv := udpserver.New(listenAddr, eng)
	logrus.WithField("addr", listenAddr).Info("dnsiter listening")

	if err := srv.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
