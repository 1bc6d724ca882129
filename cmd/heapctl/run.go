package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/heapkit/heap"
	"github.com/joshuapare/heapkit/heap/workload"
	"github.com/joshuapare/heapkit/internal/config"
	"github.com/joshuapare/heapkit/internal/logger"
	"github.com/joshuapare/heapkit/internal/report"
	"github.com/joshuapare/heapkit/internal/writer"
)

var (
	runParallel int
	runJSON     bool
	runMapWidth int
	runDumpDir  string
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().IntVarP(&runParallel, "parallel", "j", runtime.GOMAXPROCS(0), "Workloads to run at once")
	cmd.Flags().BoolVar(&runJSON, "json", false, "Output in JSON format")
	cmd.Flags().IntVar(&runMapWidth, "map", 64, "Width of the heap map, 0 to hide it")
	cmd.Flags().StringVar(&runDumpDir, "dump", "", "Write each final heap image to <dir>/<script>.img")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.star>...",
		Short: "Run allocation workloads",
		Long: `The run command executes Starlark workload scripts. Each script gets
its own freshly opened heap built from the profile, so scripts can run in
parallel without affecting each other.

Example:
  heapctl run testdata/coalesce.star
  heapctl run -j 4 workloads/*.star --json
  heapctl run --profile small.toml stress.star
  heapctl run --dump out/ grow.star`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkloads(cmd.Context(), args)
		},
	}
}

var errWorkloadsFailed = errors.New("workloads failed")

func runWorkloads(ctx context.Context, paths []string) error {
	cfg, err := loadProfile()
	if err != nil {
		return err
	}

	results := make([]workload.Result, len(paths))
	blocks := make([][]report.Block, len(paths))
	out := &syncWriter{w: stdout}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(runParallel, 1))
	for i, path := range paths {
		g.Go(func() error {
			res, free, err := runOne(ctx, cfg, path, out)
			if err != nil && res.Name == "" {
				// The script never ran.
				return err
			}
			results[i], blocks[i] = res, free
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	if runJSON {
		if err := report.JSON(stdout, results); err != nil {
			return err
		}
	} else if !quiet {
		opts := report.Options{
			Color:    useColor(),
			Verbose:  verbose,
			MapWidth: runMapWidth,
			Lang:     report.DefaultLang(),
		}
		for i, r := range results {
			if err := report.Text(stdout, r, blocks[i], opts); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d %w", failed, len(results), errWorkloadsFailed)
	}
	return nil
}

// runOne opens a fresh heap for the script at path and runs it. A zero
// Result with an error means the script could not be started.
func runOne(ctx context.Context, cfg config.Config, path string, out io.Writer) (workload.Result, []report.Block, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return workload.Result{}, nil, err
	}

	sys, err := heap.Open(cfg, heap.WithLogger(logger.L.With("script", filepath.Base(path))))
	if err != nil {
		return workload.Result{}, nil, err
	}
	defer sys.Close()

	logger.Debug("running workload", "path", path, "region", sys.Arena.Region().String())
	opts := []workload.Option{workload.WithLogger(logger.L)}
	if !runJSON && !quiet {
		opts = append(opts, workload.WithOutput(out))
	}
	res, err := workload.Run(ctx, sys, path, src, opts...)

	var free []report.Block
	if sys.Alloc.Verify() == nil {
		free = report.FreeBlocks(sys.Alloc)
	}
	if runDumpDir != "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".img"
		if derr := sys.Dump(&writer.FileWriter{Path: filepath.Join(runDumpDir, name)}); derr != nil {
			return workload.Result{}, nil, derr
		}
	}
	return res, free, err
}

// syncWriter serialises writes from concurrently running scripts.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
