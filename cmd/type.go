// Filename: cmd/type.go
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/ghosttype-cli/internal/engine"
	"github.com/xkilldash9x/ghosttype-cli/internal/inserter"
	"github.com/xkilldash9x/ghosttype-cli/internal/observability"
	"github.com/xkilldash9x/ghosttype-cli/internal/surface"
)

// newTypeCmd creates the `type` command: replay a document into the target
// editor.
func newTypeCmd() *cobra.Command {
	typeCmd := &cobra.Command{
		Use:   "type [file]",
		Short: "Types the given file (or stdin) into the target editor",
		Long: `Reads a document from the given file, or from stdin when no file is
given, and replays it into the target editable surface as paced keystrokes.

While a run is active and the document came from a file, the run is
controlled from stdin: "p" pauses, "r" resumes, "s" stops.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags override config file and environment values.
			if err := viper.BindPFlag("engine.wpm", cmd.Flags().Lookup("wpm")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.natural_variation", cmd.Flags().Lookup("natural-variation")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.preserve_formatting", cmd.Flags().Lookup("preserve-formatting")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.single_method", cmd.Flags().Lookup("single-method")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.seed", cmd.Flags().Lookup("seed")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.remote_url", cmd.Flags().Lookup("remote")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.target_url", cmd.Flags().Lookup("url")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.selector", cmd.Flags().Lookup("selector")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.Unmarshal(&cfg)
		},
		RunE: runType,
	}

	typeCmd.Flags().Int("wpm", 60, "typing rate in words per minute (10-200)")
	typeCmd.Flags().Bool("natural-variation", true, "apply random jitter to the typing rhythm")
	typeCmd.Flags().Bool("preserve-formatting", true, "emulate **bold**, *italic* and ~~underline~~ markers")
	typeCmd.Flags().Bool("single-method", true, "stop the insertion chain at the first mechanism that succeeds")
	typeCmd.Flags().Int64("seed", 0, "seed for reproducible jitter (0 uses a random seed)")
	typeCmd.Flags().String("remote", "", "DevTools websocket URL of a running Chrome instance")
	typeCmd.Flags().String("url", "", "page to navigate to before typing")
	typeCmd.Flags().String("selector", "", "CSS selector of the editable element")
	typeCmd.Flags().Bool("headless", false, "launch the browser headless")
	typeCmd.Flags().String("events-file", "", "write NDJSON progress events to this file")
	typeCmd.Flags().Bool("dry-run", false, "type into a no-op surface instead of a browser")

	return typeCmd
}

func runType(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()

	text, fromFile, err := readDocument(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	eventsFile, _ := cmd.Flags().GetString("events-file")

	reporters := engine.MultiReporter{&engine.LogReporter{Logger: logger}}
	if eventsFile != "" {
		f, err := os.Create(eventsFile)
		if err != nil {
			return fmt.Errorf("cannot create events file: %w", err)
		}
		defer f.Close()
		reporters = append(reporters, engine.NewStreamReporter(f))
	}

	var (
		surf inserter.Surface
		clip inserter.Clipboard
	)
	if dryRun {
		surf = surface.NewDryRun(logger)
	} else {
		tabCtx, cancel, err := attachBrowser(ctx, logger)
		if err != nil {
			return err
		}
		defer cancel()
		ctx = tabCtx

		located, err := surface.Locate(ctx, cfg.Browser.Selector, logger)
		if err != nil {
			reporters.Error("", err.Error())
			return fmt.Errorf("%w: %v", engine.ErrNoSurface, err)
		}
		surf = located

		cdpClip, err := surface.NewClipboard(ctx, logger)
		if err != nil {
			logger.Warn("clipboard probe failed, clipboard mechanism disabled", zap.Error(err))
		} else if cdpClip != nil {
			clip = cdpClip
		}
	}

	insOpts := []inserter.Option{
		inserter.WithFormatSettle(time.Duration(cfg.Engine.FormatSettleMs) * time.Millisecond),
	}
	if clip != nil {
		insOpts = append(insOpts, inserter.WithClipboard(clip))
	}

	engOpts := []engine.Option{
		engine.WithFocusSettle(time.Duration(cfg.Engine.FocusSettleMs) * time.Millisecond),
	}
	if cfg.Engine.Seed != 0 {
		engOpts = append(engOpts, engine.WithSeed(cfg.Engine.Seed))
	}

	eng := engine.New(logger, reporters, inserter.New(logger, insOpts...), engOpts...)

	run, err := eng.Start(ctx, engine.Settings{
		Text:               text,
		WPM:                cfg.Engine.WPM,
		PreserveFormatting: cfg.Engine.PreserveFormatting,
		NaturalVariation:   cfg.Engine.NaturalVariation,
		SingleMethod:       cfg.Engine.SingleMethod,
	}, surf)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-run.Done():
		case <-gctx.Done():
			eng.Stop()
		}
		return nil
	})
	if fromFile {
		g.Go(func() error {
			controlLoop(gctx, run, eng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if run.State() == engine.StateErrored {
		return fmt.Errorf("run ended in error state")
	}
	return nil
}

// readDocument loads the text to type from the file argument, or from stdin
// when no argument is given.
func readDocument(args []string) (text string, fromFile bool, err error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", false, fmt.Errorf("cannot read document: %w", err)
		}
		return string(data), true, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", false, fmt.Errorf("cannot read stdin: %w", err)
	}
	return string(data), false, nil
}

// attachBrowser connects to (or launches) Chrome and returns a tab context.
func attachBrowser(ctx context.Context, logger *zap.Logger) (context.Context, context.CancelFunc, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.Browser.RemoteURL != "" {
		logger.Info("attaching to running browser", zap.String("remote_url", cfg.Browser.RemoteURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.Browser.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", cfg.Browser.Headless),
		)
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	actions := []chromedp.Action{}
	if cfg.Browser.TargetURL != "" {
		actions = append(actions, chromedp.Navigate(cfg.Browser.TargetURL))
	}
	// Run even with no actions so the browser starts before locating.
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("cannot attach to browser: %w", err)
	}
	return tabCtx, cancel, nil
}

// controlLoop reads single-letter commands from stdin until the run ends:
// p pauses, r resumes, s stops.
func controlLoop(ctx context.Context, run *engine.Run, eng *engine.Engine) {
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-run.Done():
			return
		case line := <-lines:
			switch strings.ToLower(line) {
			case "p":
				eng.Pause()
			case "r":
				eng.Resume()
			case "s", "q":
				eng.Stop()
				return
			}
		}
	}
}
