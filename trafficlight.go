package trafficlight

import (
	"context"
	"log/slog"
)

type Trafficlight struct {
	Config *Config

	cycler    *PhaseCycler
	responder *Responder
}

func Run(ctx context.Context, cli *CLI) error {
	if cli.Debug {
		logLevel.Set(slog.LevelDebug)
	}
	logger.Info("starting trafficlight", slog.String("version", Version), slog.String("config", cli.Config))
	cfg, err := LoadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	t, err := NewTrafficlight(cfg)
	if err != nil {
		return err
	}
	return t.Run(ctx)
}

func NewTrafficlight(cfg *Config) (*Trafficlight, error) {
	notifiers, err := NewNotifiers(cfg.Notifiers)
	if err != nil {
		return nil, err
	}
	cycler, err := NewPhaseCycler(cfg.Light, notifiers...)
	if err != nil {
		return nil, err
	}
	return &Trafficlight{
		Config:    cfg,
		cycler:    cycler,
		responder: NewResponder(cfg.Responder, cycler),
	}, nil
}

func (t *Trafficlight) Cycler() *PhaseCycler {
	return t.cycler
}

// Run activates the light and serves it until ctx is cancelled.
func (t *Trafficlight) Run(ctx context.Context) error {
	if err := t.cycler.Activate(ctx); err != nil {
		return err
	}
	defer t.cycler.Stop()
	return t.responder.Run(ctx)
}
