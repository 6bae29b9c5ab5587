// Command demo runs a small simulation that exercises the full broadcast
// pipeline: a handful of entities drift around a bounded field while every
// tick's state streams to the configured observer endpoint. An editor-style
// observer can also connect over websocket or push Clock updates back.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"statecast"
	"statecast/intake"
	"statecast/logging"
	"statecast/logging/sinks"
	"statecast/transport"
)

func main() {
	var (
		httpAddr   string
		intakeAddr string
	)
	flag.StringVar(&httpAddr, "http", "127.0.0.1:8080", "address for the websocket observer endpoint")
	flag.StringVar(&intakeAddr, "intake", "127.0.0.1:8001", "address for inbound observer updates")
	flag.Parse()

	cfg, err := statecast.ConfigFromEnv()
	if err != nil {
		log.Fatalf("configuration: %v", err)
	}

	console := sinks.NewConsoleSink(os.Stdout)

	w := newWorld(8)

	udp, err := transport.DialUDP(cfg.ObserverAddr, cfg.MaxPayload)
	if err != nil {
		log.Fatalf("observer transport: %v", err)
	}
	hub := transport.NewWebSocketHub(cfg.MaxPayload, console)
	tr := transport.Multi(udp, hub)

	// Warnings and worse ride along to the observer as "log" side messages.
	publisher := logging.Multi(console,
		sinks.NewObserverSink(statecast.NewConn(tr, nil), logging.SeverityWarn))

	engine, err := statecast.NewBuilder(cfg).
		Sync(
			statecast.Component("Position", (*world).positionInstances),
			statecast.Component("Velocity", (*world).velocityInstances),
			statecast.Resource("Clock", (*world).clockValue),
		).
		Build(tr, publisher)
	if err != nil {
		log.Fatalf("engine setup: %v", err)
	}
	defer engine.Close()

	listener, err := intake.NewListener(intakeAddr, publisher)
	if err != nil {
		log.Fatalf("intake: %v", err)
	}
	if err := intake.Resource(listener, "Clock", (*world).applyClock); err != nil {
		log.Fatalf("intake: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go listener.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/watch", hub)
	server := &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server stopped: %v", err)
		}
	}()

	log.Printf("broadcasting to %s at %d ticks/s (websocket on %s, intake on %s)",
		cfg.ObserverAddr, cfg.TickRate, httpAddr, intakeAddr)

	run(ctx, cfg, w, engine, listener)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)
	listener.Close()

	stats := engine.Stats()
	log.Printf("done: frames=%d bytes=%d droppedOversize=%d droppedSend=%d",
		stats.FramesSent, stats.BytesSent, stats.DroppedOversize, stats.DroppedSendError)
}

// run drives the fixed-rate tick loop until the context is canceled. Observer
// updates apply between ticks so collection always reads a quiescent store.
func run(ctx context.Context, cfg statecast.Config, w *world, engine *statecast.Engine, listener *intake.Listener) {
	ticker := time.NewTicker(time.Second / time.Duration(cfg.TickRate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			if dt <= 0 {
				dt = 1.0 / float64(cfg.TickRate)
			}
			last = now

			listener.ApplyPending(w)
			w.step(dt)
			engine.Tick(w, now)
		}
	}
}
