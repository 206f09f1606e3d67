// Command browserclip-server hosts the capture engine: it accepts one /tap
// websocket connection from the browser-side extension, one /control
// websocket for the popup/options surface, and exposes /metrics for
// Prometheus. Flag handling and the startup banner follow the teacher's
// cmd/dev-console/main.go (flag.Int/flag.String, localhost-only bind,
// foreground-by-default).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/browserclip/engine/internal/buffer"
	"github.com/browserclip/engine/internal/capturepipeline"
	"github.com/browserclip/engine/internal/clip"
	"github.com/browserclip/engine/internal/config"
	"github.com/browserclip/engine/internal/state"
	"github.com/browserclip/engine/internal/store"
	"github.com/browserclip/engine/internal/uploader"
	"github.com/browserclip/engine/internal/util"
)

const version = "0.1.0"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func main() {
	port := flag.Int("port", 7891, "port to listen on")
	stateDir := flag.String("state-dir", "", "override the runtime state directory")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("browserclip-server %s\n", version)
		os.Exit(0)
	}

	if *stateDir != "" {
		os.Setenv(state.StateDirEnv, *stateDir)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := run(*port, log); err != nil {
		log.WithError(err).Error("server exited with error")
		os.Exit(1)
	}
}

func run(port int, log *logrus.Logger) error {
	storeDir, err := state.StoreDir()
	if err != nil {
		return fmt.Errorf("resolving store dir: %w", err)
	}
	s, err := store.Open(storeDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	s.SetLogger(log)
	defer s.Close()

	configPath, err := state.ConfigFile()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.SetLogger(log)

	reg := prometheus.NewRegistry()
	mgr := buffer.New(s, cfg, reg, log)

	up := uploader.New(
		func() string { return cfg.Snapshot().EndpointURL },
		func() string { return cfg.Snapshot().EndpointKey },
		log,
	)
	builder := clip.NewBuilder(s, cfg, up, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var activeTap atomic.Pointer[tapSession]
	pipeline := capturepipeline.New(s, cfg, tapFetcherProxy{&activeTap}, log)
	util.SafeGo(func() { mgr.RunSchedule(ctx) })
	util.SafeGo(func() { pipeline.Run(ctx, tapAttacherProxy{&activeTap}, func() []capturepipeline.TabInfo { return nil }) })

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		util.JSONResponse(w, http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	router.HandleFunc("/tap", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("tap: upgrade failed")
			return
		}
		sess := newTapSession(conn, log.WithField("component", "tap"))
		activeTap.Store(sess)
		sess.readLoop(ctx, pipeline)
		activeTap.CompareAndSwap(sess, nil)
	})

	ctl := &controlServer{cfg: cfg, store: s, builder: builder, mgr: mgr, uploader: up, log: log.WithField("component", "control")}
	router.HandleFunc("/control", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.WithError(err).Warn("control: upgrade failed")
			return
		}
		ctl.handleConn(conn)
	})

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	srv := &http.Server{Addr: addr, Handler: router}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.WithFields(logrus.Fields{"addr": addr, "version": version}).Info("browserclip-server listening")

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-sigCh:
		log.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}

// tapFetcherProxy/tapAttacherProxy defer to whatever tap connection is
// currently active, since the pipeline is constructed before a tap ever
// connects.
type tapFetcherProxy struct{ target *atomic.Pointer[tapSession] }

func (p tapFetcherProxy) GetResponseBody(ctx context.Context, requestID string) (capturepipeline.ResponseBody, error) {
	sess := p.target.Load()
	if sess == nil {
		return capturepipeline.ResponseBody{}, fmt.Errorf("no tap connection active")
	}
	return sess.GetResponseBody(ctx, requestID)
}

type tapAttacherProxy struct{ target *atomic.Pointer[tapSession] }

func (p tapAttacherProxy) Attach(tabID int) error {
	sess := p.target.Load()
	if sess == nil {
		return fmt.Errorf("no tap connection active")
	}
	return sess.Attach(tabID)
}

func (p tapAttacherProxy) Detach(tabID int) error {
	sess := p.target.Load()
	if sess == nil {
		return fmt.Errorf("no tap connection active")
	}
	return sess.Detach(tabID)
}
