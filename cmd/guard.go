package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brogergvhs/pagekit/internal/config"
	"github.com/brogergvhs/pagekit/internal/guard"
	"github.com/brogergvhs/pagekit/internal/keys"
	"github.com/brogergvhs/pagekit/internal/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	flagEvents    string
	flagHome      string
	flagCountdown time.Duration
)

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Redirect away from Shorts pages after a countdown",
	Long: `Reads navigation events, one per line, from --events or stdin:

  <url> [title]   the page title changed (debounced)
  pop <url>       back/forward navigation (checked immediately)

When a Shorts location is seen a countdown starts. Press enter or esc to
dismiss it; otherwise "navigate <home>" is printed when it reaches zero.`,
	Args: cobra.NoArgs,
	RunE: runGuard,
}

var guardCheckCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Tell whether a URL would be blocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, _, err := newGuard(nil, nil, nil)
		if err != nil {
			return err
		}

		if g.Check(args[0]) {
			fmt.Fprintf(cmd.OutOrStdout(), "blocked: %s\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "allowed: %s\n", args[0])
		return nil
	},
}

func init() {
	guardCmd.Flags().StringVar(&flagEvents, "events", "", "read events from this file instead of stdin")
	guardCmd.Flags().StringVar(&flagHome, "home", "", "redirect target (default https://www.youtube.com/)")
	guardCmd.Flags().DurationVar(&flagCountdown, "countdown", 0, "countdown before redirecting (default 3s)")

	guardCmd.AddCommand(guardCheckCmd)
	rootCmd.AddCommand(guardCmd)
}

func newGuard(log *ui.Logger, modal guard.Modal, nav guard.Navigator) (*guard.Guard, *config.Config, error) {
	cfg, _, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		HomeURL:      flagHome,
		Countdown:    flagCountdown,
	})
	if err != nil {
		return nil, nil, err
	}

	opts, err := guard.OptionsFromConfig(cfg.Guard)
	if err != nil {
		return nil, nil, err
	}
	opts.Log, opts.Modal, opts.Navigator = log, modal, nav

	return guard.New(opts), cfg, nil
}

func runGuard(cmd *cobra.Command, _ []string) error {
	var src io.Reader = os.Stdin
	if flagEvents != "" {
		f, err := os.Open(flagEvents)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	// Dismiss keys come from stdin when events don't, else from the
	// controlling terminal.
	dismissIn := os.Stdin
	if flagEvents == "" {
		tty, err := os.Open("/dev/tty")
		if err != nil {
			dismissIn = nil
		} else {
			defer tty.Close()
			dismissIn = tty
		}
	}

	var listener *keys.Listener
	if dismissIn != nil && term.IsTerminal(int(dismissIn.Fd())) {
		l, err := keys.Listen(dismissIn, keys.Bindings{{Ctrl: true, Key: 'c'}: keys.ActionQuit})
		if err != nil {
			return err
		}
		defer func() { _ = l.Close() }()
		listener = l
	}

	var out, errOut io.Writer = os.Stdout, os.Stderr
	if listener != nil && listener.Raw() {
		out, errOut = ui.CRLFWriter{W: os.Stdout}, ui.CRLFWriter{W: os.Stderr}
	}

	logSvc := ui.NewLoggerTo(errOut, flagDebug)
	modal := &guard.TerminalModal{
		Out:         errOut,
		Plain:       !term.IsTerminal(int(os.Stderr.Fd())),
		DismissHint: "Press enter or esc to stay.",
	}

	g, cfg, err := newGuard(logSvc, modal, guard.WriterNavigator{Out: out})
	if err != nil {
		return err
	}
	logSvc.SetDebug(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if listener != nil {
		go watchDismiss(ctx, listener, g, stop)
	}

	events := make(chan guard.Event, 16)
	go readEvents(ctx, src, events, logSvc)

	sum, err := g.Run(ctx, events)
	logSvc.Infof("Guard done: %d events, %d blocked, %d redirected, %d dismissed",
		sum.Events, sum.Blocked, sum.Redirected, sum.Dismissed)
	return err
}

func watchDismiss(ctx context.Context, l *keys.Listener, g *guard.Guard, quit context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-l.Events():
			if !ok {
				return
			}
			switch {
			case ev.Action == keys.ActionQuit:
				quit()
				return
			case ev.Chord.Key == keys.KeyEnter, ev.Chord.Key == keys.KeyEsc:
				g.Dismiss()
			}
		}
	}
}

func readEvents(ctx context.Context, r io.Reader, events chan<- guard.Event, logSvc *ui.Logger) {
	defer close(events)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		ev, ok, err := guard.ParseEvent(sc.Text())
		if err != nil {
			logSvc.Warnf("%v", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}

	if err := sc.Err(); err != nil {
		logSvc.Errorf("reading events: %v", err)
	}
}
