// Package app wires the chess server together from config.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/park285/chesscraft-go/internal/adminhttp"
	"github.com/park285/chesscraft-go/internal/ai"
	"github.com/park285/chesscraft-go/internal/archive"
	"github.com/park285/chesscraft-go/internal/chessgame"
	"github.com/park285/chesscraft-go/internal/command"
	"github.com/park285/chesscraft-go/internal/config"
	"github.com/park285/chesscraft-go/internal/expect"
	"github.com/park285/chesscraft-go/internal/hostlink"
	"github.com/park285/chesscraft-go/internal/ledger"
	"github.com/park285/chesscraft-go/internal/loop"
	"github.com/park285/chesscraft-go/internal/metrics"
	"github.com/park285/chesscraft-go/internal/msgcat"
	"github.com/park285/chesscraft-go/internal/obslog"
	"github.com/park285/chesscraft-go/internal/panel"
	"github.com/park285/chesscraft-go/internal/registry"
	"github.com/park285/chesscraft-go/internal/store"
	"github.com/park285/chesscraft-go/internal/style"
	"github.com/park285/chesscraft-go/internal/terrain"
	"go.uber.org/zap"
)

// Ledger is what the app needs from a ledger backend.
type Ledger interface {
	chessgame.Ledger
	Close()
}

// App owns every long-lived component.
type App struct {
	cfg *config.AppConfig

	Loop     *loop.Loop
	Metrics  *metrics.Metrics
	Client   *hostlink.Client
	Outbox   *hostlink.Outbox
	Events   *hostlink.Events
	Store    store.Store
	Styles   *style.Library
	Messages *msgcat.Catalog
	Registry *registry.Registry
	Router   *command.Router
	Admin    *adminhttp.Server

	ledger   Ledger
	levels   *ai.Levels
	engine   *ai.Engine
	player   *ai.Player
	repo     *archive.Repository
	archiver *archive.Archiver
	settings chessgame.Settings
	tick     loop.Timer
	escrow   sync.WaitGroup
}

func gameSettings(cfg *config.AppConfig) chessgame.Settings {
	return chessgame.Settings{
		BroadcastResults: cfg.BroadcastResults,
		AutoDelete:       cfg.AutoDelete(),
		DefaultStake:     cfg.StakeDefault,
		MaxStake:         cfg.StakeMax,
		FiftyMovePlies:   100,
	}
}

func (a *App) panelSettings() panel.Settings {
	s := panel.Settings{
		Economy:        a.cfg.Economy && a.ledger != nil,
		SmallIncrement: a.cfg.StakeSmallIncrement,
		LargeIncrement: a.cfg.StakeLargeIncrement,
	}
	if a.ledger != nil {
		s.Format = a.ledger.Format
	}
	return s
}

// New builds everything but starts nothing that talks to the network except
// the database pools, which are pinged up front.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	a := &App{cfg: cfg, settings: gameSettings(cfg)}
	a.Loop = loop.New(1024)
	a.Metrics = metrics.New()

	a.Client = hostlink.NewClient(cfg.HostBaseURL, hostlink.WithToken(cfg.HostToken))
	a.Outbox = hostlink.NewOutbox(a.Client, 1024, 10*time.Second)
	a.Outbox.OnDrop = func(string) { a.Metrics.OutboxDropped.Inc() }
	a.Outbox.OnError = func(string, error) { a.Metrics.OutboxErrors.Inc() }

	var err error
	switch cfg.StoreBackend {
	case "redis":
		a.Store, err = store.NewRedisStore(cfg.RedisURL)
	default:
		a.Store, err = store.NewFileStore(filepath.Join(cfg.DataDir, "persist"))
	}
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	if a.Styles, err = style.NewLibrary(cfg.StyleDir); err != nil {
		return nil, fmt.Errorf("init styles: %w", err)
	}
	if a.Messages, err = msgcat.New(cfg.MessagesDir); err != nil {
		return nil, fmt.Errorf("init messages: %w", err)
	}

	if cfg.Economy {
		if strings.TrimSpace(cfg.LedgerDatabaseURL) != "" {
			pg, err := ledger.NewPgLedger(ctx, cfg.LedgerDatabaseURL, cfg.Currency)
			if err != nil {
				return nil, fmt.Errorf("init ledger: %w", err)
			}
			a.ledger = pg
		} else {
			obslog.L().Warn("ledger_in_memory", zap.String("reason", "LEDGER_DATABASE_URL not set"))
			a.ledger = ledger.NewMemoryLedger(cfg.Currency)
		}
	}

	if a.levels, err = ai.NewLevels(cfg.AIConfig); err != nil {
		return nil, fmt.Errorf("init ai levels: %w", err)
	}
	if strings.TrimSpace(cfg.StockfishPath) != "" {
		if a.engine, err = ai.NewEngine(cfg.StockfishPath); err != nil {
			return nil, fmt.Errorf("init engine: %w", err)
		}
		a.player = ai.NewPlayer(a.engine, a.levels, a.Loop)
	} else {
		obslog.L().Info("ai_disabled", zap.String("reason", "STOCKFISH_PATH not set"))
		a.player = ai.NewPlayer(nil, a.levels, a.Loop)
	}
	if a.player.Book, err = ai.OpenBook(cfg.BookPath); err != nil {
		return nil, fmt.Errorf("init opening book: %w", err)
	}
	a.player.OnSearch = func(_ string, took time.Duration, _ error) { a.Metrics.SearchDone(took) }

	header := chessgame.PGNHeader{Site: "ChessCraft"}
	var saver archive.Saver = archive.NewMemoryRepository()
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		if a.repo, err = archive.NewRepository(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("init archive: %w", err)
		}
		saver = a.repo
	}
	a.archiver = archive.NewArchiver(saver, header)
	pgn := archive.NewPGNWriter(filepath.Join(cfg.DataDir, "archive"), header)

	a.Registry = registry.New(a.Store, a.Styles, a.gameDeps)

	backup := terrain.NewBackup(filepath.Join(cfg.DataDir, "terrain"), a.Client)
	a.Router = command.New(command.Deps{
		Registry:     a.Registry,
		Styles:       a.Styles,
		Expect:       expect.New(a.Messages),
		Messages:     a.Messages,
		Notifier:     a.Outbox,
		Painter:      a.Outbox,
		Host:         a.Outbox,
		Terrain:      backup,
		PGN:          pgn,
		AI:           a.player,
		Post:         a.Loop,
		ForfeitAfter: cfg.ForfeitAfter(),
		Reloaders: map[string]func(context.Context) error{
			"ai":       func(context.Context) error { return a.levels.Reload() },
			"styles":   func(context.Context) error { return a.Styles.Reload() },
			"messages": func(context.Context) error { return a.Messages.Reload() },
			"config":   a.reloadConfig,
		},
		OnCommand: a.Metrics.CommandDone,
	})
	a.Router.SetPanelSettings(a.panelSettings())

	a.Events = hostlink.NewEvents(cfg.HostWSURL, cfg.HostToken, 10, a.onEvent)
	a.Events.OnStateChange(func(s hostlink.State) {
		a.Metrics.SetHostState(string(s), hostStates)
	})

	if cfg.AdminAddr != "" {
		a.Admin = adminhttp.New(a.Registry, a.Loop, a.Metrics.Registry, header)
	}
	return a, nil
}

var hostStates = []string{
	string(hostlink.StateDisconnected),
	string(hostlink.StateConnecting),
	string(hostlink.StateConnected),
	string(hostlink.StateReconnecting),
	string(hostlink.StateFailed),
}

// gameDeps builds the collaborators of one game. It runs on the loop.
func (a *App) gameDeps(string) chessgame.Deps {
	d := chessgame.Deps{
		Notifier:  a.Outbox,
		Scheduler: a.Loop,
		AI:        a.player,
		Messages:  a.Messages,
		Settings:  a.settings,
		Hooks: chessgame.Hooks{
			// a start completed after an offloaded escrow has no command to save it
			Started: func(g *chessgame.Game) { _ = a.Registry.SaveGame(context.Background(), g) },
			Moved:   func(*chessgame.Game, chessgame.Move) { a.Metrics.Moves.Inc() },
			Finished: func(g *chessgame.Game) {
				a.Metrics.GamesFinished.WithLabelValues(string(g.ResultType())).Inc()
				a.archiver.Finished(g)
			},
		},
	}
	if a.ledger != nil {
		d.Ledger = a.ledger
		d.Offload = a.offload
	}
	return d
}

// offload runs ledger calls off the loop and posts done back to it.
func (a *App) offload(work, done func()) {
	a.escrow.Add(1)
	go func() {
		defer a.escrow.Done()
		work()
		a.Loop.Post(done)
	}()
}

func (a *App) reloadConfig(context.Context) error {
	cfg, err := config.Reload()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.settings = gameSettings(cfg)
	a.Router.SetPanelSettings(a.panelSettings())
	obslog.L().Info("config_reloaded", zap.String("file", cfg.File))
	return nil
}

// onEvent runs on the websocket reader and hands the event to the loop.
func (a *App) onEvent(ev hostlink.Event) {
	a.Loop.Post(func() { a.dispatch(ev) })
}

func (a *App) dispatch(ev hostlink.Event) {
	ctx := context.Background()
	switch ev.Type {
	case hostlink.EventCommand:
		a.Router.Handle(ctx, command.Invocation{
			Player: ev.Player,
			Admin:  ev.Admin,
			Args:   ev.Args,
			World:  ev.World,
			Pos:    ev.Pos(),
			Facing: ev.Facing,
		})
	case hostlink.EventBlockClick, hostlink.EventSignClick:
		a.Router.HandleClick(ctx, command.Click{
			Player:     ev.Player,
			World:      ev.World,
			Pos:        ev.Pos(),
			Sneaking:   ev.Sneaking,
			RightClick: ev.RightClick,
		})
	case hostlink.EventPlayerJoin:
		a.Router.PlayerJoined(ev.Player)
	case hostlink.EventPlayerQuit:
		a.Router.PlayerQuit(ev.Player)
	default:
		obslog.L().Debug("host_event_ignored", zap.String("type", string(ev.Type)))
	}
}

// tickClocks charges elapsed time to every running game.
func (a *App) tickClocks() {
	games := a.Registry.Games()
	for _, g := range games {
		if g.State() == chessgame.StateRunning {
			g.ClockTick()
		}
	}
	a.Metrics.GamesActive.Set(float64(len(games)))
}

// Run loads persisted state, connects to the host and serves until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	loopErr := make(chan error, 1)
	go func() { loopErr <- a.Loop.Run(ctx) }()

	if err := a.Loop.Do(ctx, func() error {
		if err := a.Registry.LoadAll(ctx); err != nil {
			return err
		}
		a.tick = a.Loop.Every(a.cfg.ClockTick(), a.tickClocks)
		return nil
	}); err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	if a.Admin != nil {
		go func() {
			if err := a.Admin.ListenAndServe(a.cfg.AdminAddr); err != nil {
				obslog.L().Error("admin_http_error", zap.Error(err))
			}
		}()
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := a.Events.Connect(cctx)
	cancel()
	if err != nil {
		// the reconnect loop keeps trying
		obslog.L().Warn("host_connect_error", zap.Error(err))
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-loopErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
}

// Close saves every game and releases resources. The loop must no longer be
// running.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Events != nil {
		errs = append(errs, a.Events.Close(ctx))
	}
	if a.Admin != nil {
		errs = append(errs, a.Admin.Shutdown(ctx))
	}
	if a.tick != nil {
		a.tick.Stop()
	}
	a.Router.Wait()
	a.player.Wait()
	errs = append(errs, a.Registry.SaveAll(ctx))
	a.archiver.Wait()
	errs = append(errs, a.Outbox.Close(ctx))
	if a.engine != nil {
		errs = append(errs, a.engine.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	a.escrow.Wait()
	if a.ledger != nil {
		a.ledger.Close()
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
