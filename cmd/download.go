package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/brogergvhs/pagekit/internal/config"
	"github.com/brogergvhs/pagekit/internal/downloader"
	"github.com/brogergvhs/pagekit/internal/keys"
	"github.com/brogergvhs/pagekit/internal/render"
	"github.com/brogergvhs/pagekit/internal/session"
	"github.com/brogergvhs/pagekit/internal/ui"
	"github.com/brogergvhs/pagekit/internal/util"
	"github.com/brogergvhs/pagekit/internal/wiki"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	// page
	flagURL          string
	flagClass        string
	flagNextSelector string
	flagFullSize     bool
	flagScroll       bool

	// runtime
	flagOutput        string
	flagMaxConcurrent int
	flagAuto          bool
	flagMaxPages      int
	flagInteractive   bool
	flagDryRun        bool
	flagCloudflare    bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download [url]",
		Short: "Download the thumbnail images of a wiki page into a zip archive. Uses the selected config, overwritten by CLI flags",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDownload,
	}

	// page
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "wiki page URL")
	downloadCmd.Flags().StringVar(&flagClass, "class", "", "CSS class of the image elements (default thumbimage)")
	downloadCmd.Flags().StringVar(&flagNextSelector, "next-selector", "", "selector of the cell holding the next page link")
	downloadCmd.Flags().BoolVar(&flagFullSize, "full-size", false, "fetch the original image instead of the scaled thumbnail")
	downloadCmd.Flags().BoolVar(&flagScroll, "scroll", false, "render in headless Chrome and scroll to load lazy images")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for archives")
	downloadCmd.Flags().IntVar(&flagMaxConcurrent, "max-concurrent", 5, "images fetched per batch")
	downloadCmd.Flags().BoolVar(&flagAuto, "auto", false, "skip confirmation and follow next page links")
	downloadCmd.Flags().IntVar(&flagMaxPages, "max-pages", 0, "stop after this many pages in auto mode (0 = no limit)")
	downloadCmd.Flags().BoolVar(&flagInteractive, "interactive", false, "wait for keyboard shortcuts instead of starting right away")
	downloadCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "list the images and archive name, don't download")
	downloadCmd.Flags().BoolVar(&flagCloudflare, "cloudflare", false, "use the Cloudflare bypass transport")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	url := flagURL
	if len(args) == 1 {
		url = args[0]
	}

	opts := config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		Output:       flagOutput,
		UserAgent:    flagUserAgent,
		Cookie:       flagCookie,
		CookieFile:   flagCookieFile,
		URL:          url,
		ImageClass:   flagClass,
		NextSelector: flagNextSelector,
		AutoDownload: flagAuto,
		AutoScroll:   flagScroll,
		FullSize:     flagFullSize,
		MaxPages:     flagMaxPages,
	}
	if cmd.Flags().Changed("max-concurrent") {
		opts.MaxConcurrent = flagMaxConcurrent
	}

	cfg, usedPath, err := config.LoadMerged(opts)
	if err != nil {
		return err
	}
	if flagCloudflare {
		cfg.CloudflareBypass = true
	}

	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

	if cfg.Download.URL == "" {
		return fmt.Errorf("missing --url and no download.url in config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	util.SetupInterruptHandler(cfg.Output)

	if flagDryRun {
		logSvc := ui.NewLogger(cfg.Debug)
		loader, _, err := newLoader(cfg, logSvc)
		if err != nil {
			return err
		}
		return dryRun(ctx, cfg, loader, logSvc)
	}

	// The key listener owns the terminal from here on: raw mode needs
	// CRLF output, and Ctrl+C arrives as a key instead of SIGINT.
	var listener *keys.Listener
	if flagInteractive || (cfg.Download.AutoDownload && term.IsTerminal(int(os.Stdin.Fd()))) {
		sc := cfg.Download.Shortcuts
		bindings, err := keys.NewBindings(sc.Download, sc.Next, sc.Stop)
		if err != nil {
			return err
		}

		listener, err = keys.Listen(os.Stdin, bindings)
		if err != nil {
			return err
		}
		defer func() { _ = listener.Close() }()
	}

	var out, errOut io.Writer = os.Stdout, os.Stderr
	if listener != nil && listener.Raw() {
		out, errOut = ui.CRLFWriter{W: os.Stdout}, ui.CRLFWriter{W: os.Stderr}
	}
	logSvc := ui.NewLoggerTo(errOut, cfg.Debug)

	loader, client, err := newLoader(cfg, logSvc)
	if err != nil {
		return err
	}

	pm := ui.NewProgressManager(out)
	defer pm.Close()

	stats := &ui.Stats{}
	deps := session.Deps{
		Loader:     loader,
		Downloader: downloader.New(client, logSvc),
		Confirmer:  session.PromptConfirmer{},
		Log:        logSvc,
		Stats:      stats,
		Out:        out,
		Progress: func(name string) downloader.Progress {
			return pm.Register(name)
		},
	}

	var events chan keys.Event
	if listener != nil {
		events = make(chan keys.Event, 16)
		deps.Confirmer = session.KeyConfirmer{Events: events, Out: out}
	}
	sess := session.New(cfg, deps)
	if listener != nil {
		go forwardKeys(sess.Intercept(listener.Events(), cancel), events)
	}

	start := time.Now()
	if flagInteractive {
		err = sess.Watch(ctx, cfg.Download.URL, cfg.Download.Shortcuts, events)
	} else {
		err = runOnce(ctx, sess, cfg)
	}

	pm.Close()
	printSummary(out, stats, time.Since(start))

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newLoader builds the shared HTTP client and the page loader on top of it.
// Auto-scroll needs a real browser for the lazy images to load.
func newLoader(cfg *config.Config, logSvc *ui.Logger) (render.Loader, *http.Client, error) {
	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          30 * time.Second,
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      logSvc,
	})
	if err != nil {
		return nil, nil, err
	}

	if cfg.Download.AutoScroll {
		return render.NewBrowserLoader(render.BrowserOptions{
			UserAgent:   util.PickUserAgent(cfg.UserAgent),
			ScrollStep:  cfg.Download.ScrollStep,
			ScrollDelay: cfg.Download.ScrollDelay,
			DebugLogger: logSvc,
		}), client, nil
	}

	return render.NewHTTPLoader(client), client, nil
}

func forwardKeys(in <-chan keys.Event, out chan<- keys.Event) {
	defer close(out)
	for ev := range in {
		out <- ev
	}
}

func runOnce(ctx context.Context, sess *session.Session, cfg *config.Config) error {
	if cfg.Download.AutoDownload {
		return sess.Run(ctx, cfg.Download.URL)
	}

	_, err := sess.StartDownloadProcess(ctx, cfg.Download.URL)
	if errors.Is(err, session.ErrDeclined) {
		fmt.Println("Aborted.")
		return nil
	}
	return err
}

func dryRun(ctx context.Context, cfg *config.Config, loader render.Loader, logSvc *ui.Logger) error {
	sess := session.New(cfg, session.Deps{Loader: loader, Log: logSvc, Out: os.Stdout})

	page, refs, err := sess.Preview(ctx, cfg.Download.URL)
	if err != nil {
		return err
	}

	fmt.Printf("Dry-run: %d images on %q\n", len(refs), page.Title)
	fmt.Printf("Archive: %s.zip\n\n", wiki.SanitizeTitle(page.Title))
	for i, ref := range refs {
		src := ref.URL
		if src == "" {
			src = "(no source)"
		}
		fmt.Printf("%3d) %s\n    %s\n", i+1, ref.Name, src)
	}

	if next, err := wiki.NextPageURL(page.Doc, page.URL, cfg.Download.NextSelector); err == nil {
		fmt.Printf("\nNext page: %s\n", next)
	}
	return nil
}

func printSummary(w io.Writer, stats *ui.Stats, took time.Duration) {
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Download Summary:")
	_, _ = fmt.Fprintf(w, "Pages:    %d\n", stats.TotalPages.Load())
	_, _ = fmt.Fprintf(w, "Archives: %d\n", stats.TotalArchives.Load())
	_, _ = fmt.Fprintf(w, "Images:   %d\n", stats.TotalImages.Load())
	if n := stats.TotalFailed.Load(); n > 0 {
		_, _ = fmt.Fprintf(w, "Failed:   %d\n", n)
	}
	_, _ = fmt.Fprintf(w, "Data:     %s\n", util.HumanBytes(stats.TotalBytes.Load()))
	_, _ = fmt.Fprintf(w, "Time:     %s\n", took.Round(time.Second))
}
