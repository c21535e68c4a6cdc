package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brogergvhs/pagekit/internal/config"
	"github.com/brogergvhs/pagekit/internal/resize"
	"github.com/brogergvhs/pagekit/internal/ui"
	"github.com/brogergvhs/pagekit/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagResizeSize   int
	flagResizeOutput string
)

var resizeCmd = &cobra.Command{
	Use:   "resize <folder|archive.zip>...",
	Short: "Cut downloaded images into three square crops each, saved as PNG",
	Long: `Every .png, .jpg, .jpeg or .webp image is cut into three squares along
its long side (start, centre, end), padded onto black and scaled to
--size pixels. Portrait crops get the _S/_C/_E suffixes, landscape ones
_L/_C/_R.

A folder writes its crops next to itself (into the parent folder); an
archive writes them next to the zip file. --output overrides both.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResize,
}

func init() {
	resizeCmd.Flags().IntVar(&flagResizeSize, "size", 0, "edge of the square output in pixels (default 512)")
	resizeCmd.Flags().StringVarP(&flagResizeOutput, "output", "o", "", "folder for the cropped images")
	rootCmd.AddCommand(resizeCmd)
}

func runResize(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadMerged(config.Options{
		IgnoreConfig: flagIgnoreConfig,
		Debug:        flagDebug,
		ResizeSize:   flagResizeSize,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	logSvc := ui.NewLoggerTo(cmd.ErrOrStderr(), cfg.Debug)
	proc := resize.New(cfg.Resize.Size, logSvc)

	pm := ui.NewProgressManager(out)
	defer pm.Close()

	var total resize.Summary
	for _, src := range args {
		info, err := os.Stat(src)
		if err != nil {
			return err
		}

		dest := flagResizeOutput
		if dest == "" {
			dest = defaultResizeOutput(src, info.IsDir())
		}

		name := filepath.Base(src)
		var sum resize.Summary
		switch {
		case info.IsDir():
			sum, err = proc.Dir(src, dest, pm.Register(name))
		case strings.EqualFold(filepath.Ext(src), ".zip"):
			sum, err = proc.Zip(src, dest, pm.Register(name))
		default:
			return fmt.Errorf("%s: expected a folder or a .zip archive", src)
		}
		if err != nil {
			return err
		}

		total.Processed += sum.Processed
		total.Failed += sum.Failed
		total.Written += sum.Written
		total.Bytes += sum.Bytes
	}

	pm.Close()
	fmt.Fprintf(out, "\nCropped %d images into %d files (%s) at %dpx\n",
		total.Processed, total.Written, util.HumanBytes(total.Bytes), cfg.Resize.Size)
	if total.Failed > 0 {
		fmt.Fprintf(out, "Failed:  %d\n", total.Failed)
	}
	return nil
}

// defaultResizeOutput is the parent of a folder, or the folder holding an
// archive.
func defaultResizeOutput(src string, isDir bool) string {
	abs, err := filepath.Abs(src)
	if err != nil {
		abs = src
	}
	if isDir {
		return filepath.Dir(filepath.Clean(abs))
	}
	return filepath.Dir(abs)
}
