package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"flowedit/logging"
	"flowedit/pipeline"
	"flowedit/render"
	"flowedit/state"
	"flowedit/terminal"
	"flowedit/transport"
)

func newEditCmd(a *app) *cobra.Command {
	var (
		host    string
		logFile string
		ascii   bool
	)
	cmd := &cobra.Command{
		Use:   "edit FILE",
		Short: "Open the interactive terminal editor",
		Long: `Open the interactive terminal editor.

  click            select a node or edge
  shift+click      add to or remove from the selection
  ctrl+drag        connect two nodes
  double-click     edit a label (enter commits, esc cancels)
  delete           delete the selection
  a                add a node
  e                edit the source text (esc commits)
  ctrl+z / ctrl+y  undo / redo
  arrows           pan
  q                quit

With --host the document is loaded from and saved to a document host
instead of the local file; FILE then names the document on the host.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("host") {
				host = a.cfg.Host
			}
			logger, closeLog, err := a.editorLogger(logFile)
			if err != nil {
				return err
			}
			defer closeLog()
			return a.runEditor(cmd.Context(), args[0], host, ascii, logger)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", `document host address (host:port or "unix:/path")`)
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs here while the editor owns the terminal")
	cmd.Flags().BoolVar(&ascii, "ascii", false, "draw boxes with plain ASCII characters")
	return cmd
}

// editorLogger replaces the stderr logger while the screen is in use.
// Without a log file, logs are dropped.
func (a *app) editorLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Level:  a.cfg.LogLevel,
		JSON:   a.cfg.LogJSON,
		Color:  "off",
		Writer: f,
	})
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return logger, func() { f.Close() }, nil
}

// connect dials the document host and starts reading from it.
func (a *app) connect(ctx context.Context, host, path string, logger *slog.Logger) (*transport.DocumentService, func(), error) {
	codec, err := transport.CodecByName(a.cfg.Codec)
	if err != nil {
		return nil, nil, err
	}
	client, err := transport.Dial(ctx, host,
		transport.WithCodec(codec),
		transport.WithTimeout(a.cfg.TransportTimeout.Std()),
		transport.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	go func() {
		if err := client.Run(ctx); err != nil {
			logger.Error("document host connection lost", "error", err)
		}
	}()
	return transport.NewDocumentService(client, path), func() { client.Close() }, nil
}

func (a *app) runEditor(ctx context.Context, path, host string, ascii bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var (
		doc    pipeline.Persister
		remote *transport.DocumentService
	)
	if host != "" {
		svc, disconnect, err := a.connect(ctx, host, path, logger)
		if err != nil {
			return err
		}
		defer disconnect()
		doc, remote = svc, svc
	} else {
		doc = a.open(path)
	}

	source, err := doc.Load(ctx)
	if err != nil {
		return err
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	adapter := newRenderer(logger)

	var view *terminal.View
	session := pipeline.NewSession(state.NewStore(source), adapter, doc, pipeline.Options{
		TypingDebounce:  a.cfg.TypingDebounce.Std(),
		HistoryCapacity: a.cfg.HistoryCapacity,
		Logger:          logger,
		OnRender: func(d *render.Diagram) {
			if view != nil {
				view.Rendered(d)
			}
		},
	})
	defer session.Close()

	caps := terminal.DetectCapabilities(os.Getenv)
	logger.Debug("terminal detected", "name", caps.Name, "unicode", caps.Unicode, "color", caps.Color)
	view = terminal.NewView(screen, adapter, session, terminal.Options{
		ASCII:          ascii || !caps.Unicode,
		NoColor:        !caps.Color,
		CapturePadding: a.cfg.CapturePadding,
		Logger:         logger,
	})
	if remote != nil {
		remote.OnChangedExternally(func(source string) {
			// Runs on the connection reader; the session may be waiting
			// on a save reply from that same reader.
			go func() {
				if err := session.ExternalChange(ctx, source); err != nil {
					logger.Warn("applying external change failed", "error", err)
				}
			}()
		})
	}

	// A source that does not render yet still opens; the status line shows why
	if err := session.Render(ctx); err != nil {
		logger.Warn("initial render failed", "error", err)
	}
	if err := view.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
