package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ritzau/pdg-diff/pkg/cycles"
	"github.com/ritzau/pdg-diff/pkg/engine"
	"github.com/ritzau/pdg-diff/pkg/loader"
	"github.com/ritzau/pdg-diff/pkg/logging"
	"github.com/ritzau/pdg-diff/pkg/output"
	"github.com/ritzau/pdg-diff/pkg/pubsub"
	"github.com/ritzau/pdg-diff/pkg/watcher"
	"github.com/ritzau/pdg-diff/pkg/web"
)

var (
	serveWhileWatching bool

	diffCmd = &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Diff two graph documents and print the edit script",
		Args:  cobra.ExactArgs(2),
		RunE:  runDiff,
	}

	cyclesCmd = &cobra.Command{
		Use:   "cycles FILE",
		Short: "List the dependency cycles of every method in a graph document",
		Args:  cobra.ExactArgs(1),
		RunE:  runCycles,
	}

	watchCmd = &cobra.Command{
		Use:   "watch OLD NEW",
		Short: "Re-run the diff whenever one of the documents changes",
		Args:  cobra.ExactArgs(2),
		RunE:  runWatch,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the diff engine over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
)

func init() {
	watchCmd.Flags().BoolVar(&serveWhileWatching, "web", false, "Also serve the latest result and live events over HTTP")
}

// loadPair reads both versions concurrently
func loadPair(ctx context.Context, oldPath, newPath string) (*loader.Program, *loader.Program, error) {
	paths := [2]string{oldPath, newPath}
	var programs [2]*loader.Program

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			p, err := loader.NewFileSource(path).Load(gctx)
			programs[i] = p
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return programs[0], programs[1], nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	cfg, opts, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, err := engine.New(opts)
	if err != nil {
		return err
	}

	before, after, err := loadPair(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	result, err := e.Diff(ctx, before, after)
	if err != nil {
		return err
	}
	return output.Write(cmd.OutOrStdout(), cfg.Format, result)
}

func runCycles(cmd *cobra.Command, args []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	p, err := loader.NewFileSource(args[0]).Load(cmd.Context())
	if err != nil {
		return err
	}

	var report []output.MethodCycles
	for _, m := range p.Graphs() {
		report = append(report, output.MethodCycles{
			Method: m.Graph.Name(),
			Cycles: cycles.FindCycles(m.Graph),
		})
	}

	if cfg.Format == output.FormatJSON {
		return output.WriteJSON(cmd.OutOrStdout(), report)
	}
	output.PrintCycles(cmd.OutOrStdout(), p.Class, report)
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, opts, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	e, err := engine.New(opts)
	if err != nil {
		return err
	}

	publisher := pubsub.NewSessionPublisher()
	defer publisher.Close()

	session := watcher.NewSession(args[0], args[1], e,
		watcher.WithPublisher(publisher),
		watcher.OnResult(func(r *engine.Result) {
			if err := output.Write(cmd.OutOrStdout(), cfg.Format, r); err != nil {
				logging.Error("failed to write result", "error", err)
			}
		}))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(gctx) })
	if serveWhileWatching {
		server, err := web.NewServer(opts, session, publisher)
		if err != nil {
			return err
		}
		g.Go(func() error { return server.Run(gctx, cfg.Port) })
	}
	return g.Wait()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, opts, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	server, err := web.NewServer(opts, nil, nil)
	if err != nil {
		return fmt.Errorf("failed to configure server: %w", err)
	}
	return server.Run(ctx, cfg.Port)
}
