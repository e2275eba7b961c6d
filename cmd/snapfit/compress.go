package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shamspias/snapfit"
)

func newCompressCmd(a *app) *cobra.Command {
	var (
		outDir   string
		workers  int
		fidelity bool
	)

	cmd := &cobra.Command{
		Use:   "compress <input>...",
		Short: "Recompress images to fit the byte budget",
		Long: `Recompress each input and write <name>_snapfit.jpg next to it, or into
the directory given with --out-dir. Inputs that are left unchanged keep their
original extension.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &usageError{errors.New("compress requires at least one input")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create %q: %w", outDir, err)
				}
			}

			items := make([]snapfit.BatchItem, len(args))
			for i, path := range args {
				items[i] = snapfit.BatchItem{Source: snapfit.FileSource{Path: path}}
			}

			c := a.compressor(snapfit.WithFidelity(fidelity))
			results := c.CompressBatch(cmd.Context(), items, snapfit.BatchOptions{
				Workers: workers,
				Target:  a.target,
			})

			var firstErr error
			out := cmd.OutOrStdout()
			written := make(map[string]bool, len(results))
			for i, r := range results {
				if r.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", args[i], r.Err)
					if firstErr == nil {
						firstErr = r.Err
					}
					continue
				}
				dst := uniquePath(outputPath(args[i], outDir, r.Result.File.Name), written)
				if err := os.WriteFile(dst, r.Result.Bytes(), 0o644); err != nil {
					return fmt.Errorf("write %q: %w", dst, err)
				}
				fmt.Fprintf(out, "%s → %s\n", r.Result, dst)
			}

			if len(results) > 1 {
				fmt.Fprintln(out, snapfit.Summarize(results))
			}
			return firstErr
		},
	}

	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "", "output directory (default: next to each input)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent runs (default: number of CPUs)")
	cmd.Flags().BoolVar(&fidelity, "fidelity", false, "report SSIM of each recompressed output")
	return cmd
}

// outputPath places name, suffixed with _snapfit, in dir or next to input.
func outputPath(input, dir, name string) string {
	if dir == "" {
		dir = filepath.Dir(input)
	}
	ext := filepath.Ext(name)
	return filepath.Join(dir, strings.TrimSuffix(name, ext)+"_snapfit"+ext)
}

// uniquePath numbers path (_2, _3, ...) until it is not in used, then
// records it. Inputs sharing a base name must not overwrite each other.
func uniquePath(path string, used map[string]bool) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	p := path
	for n := 2; used[p]; n++ {
		p = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
	used[p] = true
	return p
}
