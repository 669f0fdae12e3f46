package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sghaida/oderive/internal/config"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]...",
		Short: "Generate once, then regenerate whenever a Go file in the directories changes",
		Long: `watch runs generate over the directories (default ".") and keeps running,
regenerating a file's output each time it is written. When a config file was
loaded, edits to it take effect without a restart. Stop with Ctrl-C.`,
		Args: withUsage(cobra.ArbitraryArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"."}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, args)
		},
	}
}

// watchEvents is everything the watch loop reacts to.
type watchEvents struct {
	events  <-chan fsnotify.Event
	errors  <-chan error
	reloads <-chan config.Config
}

func (a *app) watch(ctx context.Context, dirs []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("oderive: watch: %w", err)
	}
	defer func() { _ = w.Close() }()

	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("oderive: watch %s: %w", d, err)
		}
	}

	reloads := make(chan config.Config)
	if used := a.v.ConfigFileUsed(); used != "" {
		config.Watch(a.v, func(c config.Config) {
			select {
			case reloads <- c:
			case <-ctx.Done():
			}
		}, func(err error) {
			a.log.Warn("ignoring config change", zap.String("path", used), zap.Error(err))
		})
	}

	if err := a.generate(ctx, dirs, generateFlags{}); err != nil {
		a.log.Error("initial generation failed", zap.Error(err))
	}
	a.log.Info("watching", zap.Strings("dirs", dirs))

	return a.watchLoop(ctx, watchEvents{events: w.Events, errors: w.Errors, reloads: reloads})
}

// watchLoop handles one event at a time until ctx is done or the watcher
// closes. Generation failures are logged and do not stop the loop.
func (a *app) watchLoop(ctx context.Context, ev watchEvents) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-ev.events:
			if !ok {
				return nil
			}
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				continue
			}
			if !isSource(e.Name, a.cfg.OutSuffix) {
				continue
			}
			if err := a.generate(ctx, []string{e.Name}, generateFlags{}); err != nil {
				a.log.Error("regeneration failed", zap.String("source", e.Name), zap.Error(err))
			}

		case err, ok := <-ev.errors:
			if !ok {
				return nil
			}
			a.log.Warn("watcher error", zap.Error(err))

		case c := <-ev.reloads:
			a.cfg = c
			a.log.Info("configuration reloaded")
		}
	}
}
