package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sghaida/oderive/internal/extract"
	"github.com/sghaida/oderive/internal/generate"
)

type generateFlags struct {
	out    string
	stdout bool
	specs  []string
}

func newGenerateCmd(a *app) *cobra.Command {
	var fl generateFlags

	cmd := &cobra.Command{
		Use:   "generate [file|dir]...",
		Short: "Write a *_derive.gen.go file for every input holding derive records",
		Long: `generate extracts the records of each input and writes their builders and
Format methods next to it. Directories expand to their non-test .go files;
record specs (.yaml, .yml, .json) are given as files or with --spec.
With no arguments the file named by $GOFILE is used, so

  //go:generate oderive generate

is enough in a source file.`,
		Args: withUsage(cobra.ArbitraryArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			args = append(args, fl.specs...)
			if len(args) == 0 {
				gofile := os.Getenv("GOFILE")
				if gofile == "" {
					return usageError{errors.New("no inputs given and $GOFILE is not set")}
				}
				args = []string{gofile}
			}
			return a.generate(cmd.Context(), args, fl)
		},
	}

	cmd.Flags().StringVarP(&fl.out, "out", "o", "", "output path (single input only)")
	cmd.Flags().BoolVar(&fl.stdout, "stdout", false, "print generated code instead of writing files")
	cmd.Flags().StringArrayVar(&fl.specs, "spec", nil, "YAML or JSON record spec to generate from (repeatable)")
	return cmd
}

// job pairs an input with the file generated from it.
type job struct {
	in  string
	out string
}

func (a *app) generate(ctx context.Context, inputs []string, fl generateFlags) error {
	if fl.out != "" && fl.stdout {
		return usageError{errors.New("--out and --stdout are mutually exclusive")}
	}

	files, err := expandInputs(inputs, a.cfg.OutSuffix)
	if err != nil {
		return err
	}
	if fl.out != "" && len(files) != 1 {
		return usageError{fmt.Errorf("--out needs exactly one input file, have %d", len(files))}
	}

	jobs, err := planJobs(files, a.cfg.OutSuffix, fl.out)
	if err != nil {
		return err
	}

	results := make([][]byte, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Jobs > 0 {
		g.SetLimit(a.cfg.Jobs)
	}
	for i, j := range jobs {
		g.Go(func() error {
			src, err := a.generateFile(ctx, j)
			if err != nil {
				return err
			}
			if src == nil || fl.stdout {
				results[i] = src
				return nil
			}
			written, err := writeOutput(j.out, src, 0o644)
			if err != nil {
				return fmt.Errorf("oderive: write %s: %w", j.out, err)
			}
			if !written {
				a.log.Debug("up to date", zap.String("source", j.in), zap.String("output", j.out))
				return nil
			}
			a.log.Info("generated", zap.String("source", j.in), zap.String("output", j.out))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if fl.stdout {
		for _, src := range results {
			if src == nil {
				continue
			}
			if _, err := a.stdout.Write(src); err != nil {
				return err
			}
		}
	}
	return nil
}

// generateFile returns the generated source for one input, or nil when the
// input declares no records.
func (a *app) generateFile(ctx context.Context, j job) ([]byte, error) {
	f, err := extract.Load(j.in, a.log)
	if err != nil {
		return nil, err
	}
	if f.Generated || len(f.Records) == 0 {
		a.log.Debug("no records", zap.String("source", j.in))
		return nil, nil
	}

	frags, err := generate.All(ctx, f.Records, a.cfg.GenerateOptions(), a.cfg.Jobs)
	if err != nil {
		return nil, err
	}
	for _, frag := range frags {
		for _, u := range frag.Unsatisfied {
			a.log.Warn("unsatisfied bound",
				zap.String("record", u.Record),
				zap.String("param", u.Param),
				zap.Error(u))
		}
	}

	return generate.Assemble(generate.FileSpec{
		Package:    f.Package,
		OutPath:    j.out,
		Source:     filepath.Base(j.in),
		SourceHash: f.Hash,
		Imports:    f.Imports,
		Runtime:    a.cfg.RuntimeImport,
	}, frags)
}

// expandInputs replaces directories with the .go files they contain,
// skipping tests and previously generated output. Duplicates are dropped.
func expandInputs(inputs []string, outSuffix string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("oderive: %w", err)
		}
		if !info.IsDir() {
			add(in)
			continue
		}

		entries, err := os.ReadDir(in)
		if err != nil {
			return nil, fmt.Errorf("oderive: %w", err)
		}
		for _, e := range entries {
			if e.Type().IsRegular() && isSource(e.Name(), outSuffix) {
				add(filepath.Join(in, e.Name()))
			}
		}
	}
	return files, nil
}

// isSource reports whether a .go file may declare records: tests and
// generated output never do.
func isSource(name, outSuffix string) bool {
	return filepath.Ext(name) == ".go" &&
		!strings.HasSuffix(name, "_test.go") &&
		!strings.HasSuffix(name, outSuffix)
}

// outputPath swaps the input's extension for suffix.
func outputPath(in, suffix string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + suffix
}

// planJobs assigns every file its output and rejects inputs that would
// overwrite each other or themselves.
func planJobs(files []string, suffix, out string) ([]job, error) {
	owners := make(map[string]string, len(files))
	jobs := make([]job, 0, len(files))
	for _, in := range files {
		j := job{in: in, out: outputPath(in, suffix)}
		if out != "" {
			j.out = out
		}
		if filepath.Clean(j.out) == filepath.Clean(in) {
			return nil, usageError{fmt.Errorf("%s would overwrite its own input", in)}
		}
		if prev, ok := owners[j.out]; ok {
			return nil, usageError{fmt.Errorf("%s and %s both generate %s", prev, in, j.out)}
		}
		owners[j.out] = in
		jobs = append(jobs, j)
	}
	sort.SliceStable(jobs, func(i, k int) bool { return jobs[i].in < jobs[k].in })
	return jobs, nil
}
