// cmd/dockstream/main.go
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/rusenback/dockstream/internal/config"
	"github.com/rusenback/dockstream/internal/events"
	"github.com/rusenback/dockstream/internal/model"
	"github.com/rusenback/dockstream/internal/storage"
	"github.com/rusenback/dockstream/internal/stream"
	"github.com/rusenback/dockstream/internal/tui"
	"github.com/rusenback/dockstream/internal/upstream"
)

var (
	flagConfig string
	flagToken  string
	flagTail   int
	flagDebug  bool
)

func main() {
	root := &cobra.Command{
		Use:           "dockstream",
		Short:         "Live log and event streaming for Docker hosts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.dockstream/config.yaml)")
	root.PersistentFlags().StringVar(&flagToken, "token", "", "bearer token for gateway endpoints")
	root.PersistentFlags().IntVar(&flagTail, "tail", -1, "historical lines to request (default from config)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "write debug log to ~/.dockstream/debug.log")

	root.AddCommand(logsCommand(), eventsCommand(), hostsCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// logsCommand streams one container's logs.
func logsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs HOST CONTAINER",
		Short: "Stream a container's logs",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			opts := env.cfg.Options()
			if flagTail >= 0 {
				opts.Tail = flagTail
			}

			session := stream.NewSession(
				model.Target{
					HostID:     args[0],
					ResourceID: args[1],
					Options:    opts,
				},
				env.transport,
				env.tokens,
				stream.WithLogger(env.logger),
				stream.WithMetrics(env.metrics),
				stream.WithAutoConnect(),
			)
			defer session.Close()

			p := tea.NewProgram(tui.NewLogsModel(session), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
}

// eventsCommand streams the aggregated daemon event timeline.
func eventsCommand() *cobra.Command {
	var host string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Watch daemon events across configured hosts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			env, err := setup()
			if err != nil {
				return err
			}
			defer env.close()

			agg := events.NewAggregator(
				env.transport,
				env.tokens,
				env.directory,
				events.WithLogger(env.logger),
				events.WithMetrics(env.metrics),
			)
			defer agg.Close()

			if host != "" {
				if err := agg.SetScope(host); err != nil {
					return err
				}
			}

			p := tea.NewProgram(tui.NewEventsModel(agg), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "limit to one host id (default: all)")
	return cmd
}

// hostsCommand manages the persistent host directory.
func hostsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "Manage configured hosts",
	}

	var name string
	add := &cobra.Command{
		Use:   "add ID ENDPOINT",
		Short: "Add or update a host",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := storage.NewStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.UpsertHost(model.Host{ID: args[0], Name: name, Endpoint: args[1]})
		},
	}
	add.Flags().StringVar(&name, "name", "", "display name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured hosts",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			store, err := storage.NewStore()
			if err != nil {
				return err
			}
			defer store.Close()
			hosts, err := store.Hosts()
			if err != nil {
				return err
			}
			for _, h := range hosts {
				fmt.Printf("%-20s %-20s %s\n", h.ID, h.Name, h.Endpoint)
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Remove a host",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, err := storage.NewStore()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.RemoveHost(args[0])
		},
	}

	cmd.AddCommand(add, list, rm)
	return cmd
}

// env wires the shared dependencies behind every streaming command.
type env struct {
	cfg       config.Config
	directory model.HostDirectory
	transport stream.Transport
	tokens    stream.TokenSource
	logger    *slog.Logger
	metrics   *stream.Metrics
	store     *storage.Store
	daemon    *upstream.DockerTransport
	logFile   *os.File
}

func setup() (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg}
	e.logger = newLogger(e)

	// Hosts from the config file are seeded into the persistent
	// directory; the directory is then the single source of truth.
	store, err := storage.NewStore()
	if err == nil {
		e.store = store
		for _, h := range cfg.Directory() {
			_ = store.UpsertHost(h)
		}
		e.directory = store
	} else {
		e.logger.Warn("host store unavailable, using config hosts only", "error", err)
		e.directory = cfg.Directory()
	}

	e.daemon = upstream.NewDockerTransport(e.directory)
	e.transport = upstream.NewMux(
		e.directory,
		stream.NewWebSocketTransport(e.directory),
		e.daemon,
	)

	token := flagToken
	if token == "" {
		token = cfg.Token
	}
	if token == "" {
		// Daemon sockets authenticate via filesystem permissions; a
		// placeholder keeps the subscription contract satisfied when no
		// gateway is involved.
		token = "local"
	}
	e.tokens = stream.StaticToken(token)

	e.metrics = stream.NewMetrics(prometheus.NewRegistry())
	return e, nil
}

func (e *env) close() {
	if e.daemon != nil {
		_ = e.daemon.Close()
	}
	if e.store != nil {
		_ = e.store.Close()
	}
	if e.logFile != nil {
		_ = e.logFile.Close()
	}
}

// newLogger sends debug output to a file so it cannot fight the TUI for
// the terminal.
func newLogger(e *env) *slog.Logger {
	if !flagDebug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	path := filepath.Join(homeDir, ".dockstream", "debug.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.logFile = f
	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
