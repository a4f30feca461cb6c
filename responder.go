package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Responder serves the state of a PhaseCycler over HTTP.
type Responder struct {
	addr   string
	cycler *PhaseCycler
}

func NewResponder(cfg *ResponderConfig, cycler *PhaseCycler) *Responder {
	return &Responder{
		addr:   cfg.Addr,
		cycler: cycler,
	}
}

func (r *Responder) Run(ctx context.Context) error {
	srv := http.Server{
		Addr:    r.addr,
		Handler: r.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", slog.String("module", "responder"), slog.String("addr", r.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *Responder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", r.handleSignal)
	mux.HandleFunc("/phase", r.handlePhase)
	mux.HandleFunc("/wait", r.handleWait)
	return mux
}

// handleSignal answers 200 while green and 503 while red.
func (r *Responder) handleSignal(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/" {
		http.NotFound(w, req)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	p := r.cycler.CurrentPhase()
	switch p {
	case PhaseGreen:
		w.WriteHeader(http.StatusOK)
	case PhaseRed:
		w.WriteHeader(http.StatusServiceUnavailable)
	default:
		logger.Warn("unknown phase", slog.String("module", "responder"), slog.String("phase", p.String()))
		w.WriteHeader(http.StatusInternalServerError)
	}
	fmt.Fprintln(w, p)
}

func (r *Responder) handlePhase(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, r.cycler.CurrentPhase())
}

// handleWait blocks until the light turns green. The optional timeout query
// parameter bounds the wait.
func (r *Responder) handleWait(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	if s := req.URL.Query().Get("timeout"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			http.Error(w, fmt.Sprintf("invalid timeout %q", s), http.StatusBadRequest)
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	logger.Debug("waiting for green", slog.String("module", "responder"), slog.String("remote", req.RemoteAddr))
	// The queue may hold greens from cycles long past, so a received green
	// only counts when the light is green now.
	for r.cycler.CurrentPhase() != PhaseGreen {
		if err := r.cycler.AwaitContext(ctx, PhaseGreen); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				http.Error(w, "timeout waiting for green", http.StatusGatewayTimeout)
				return
			}
			// shutting down, or the client went away
			http.Error(w, "wait aborted", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, PhaseGreen)
}
