package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sghaida/oderive/internal/directive"
	"github.com/sghaida/oderive/internal/extract"
	"github.com/sghaida/oderive/internal/generate"
	"github.com/sghaida/oderive/internal/schema"
	"github.com/sghaida/oderive/internal/typeshape"
)

func newExplainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <file>...",
		Short: "Describe what generate would produce for each record, without writing anything",
		Args:  withUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.explain(cmd.Context(), args)
		},
	}
}

func (a *app) explain(_ context.Context, inputs []string) error {
	opts := a.cfg.GenerateOptions()
	failed := 0
	for _, in := range inputs {
		f, err := extract.Load(in, a.log)
		if err != nil {
			return err
		}
		if f.Generated {
			_, _ = fmt.Fprintf(a.stdout, "%s: generated file, skipped\n", in)
			continue
		}
		if len(f.Records) == 0 {
			_, _ = fmt.Fprintf(a.stdout, "%s: no records\n", in)
			continue
		}
		for _, td := range f.Records {
			if !explainRecord(a.stdout, td, opts) {
				failed++
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("oderive: %d record(s) cannot be generated", failed)
	}
	return nil
}

// explainRecord prints one record and reports whether it generates cleanly.
func explainRecord(w io.Writer, td *schema.TypeDescriptor, opts generate.Options) bool {
	protocols := make([]string, len(td.Derive))
	for i, p := range td.Derive {
		protocols[i] = string(p)
	}
	_, _ = fmt.Fprintf(w, "%s%s (%s) derives %s at %s\n",
		td.Name, td.TypeParams(), td.Kind, strings.Join(protocols, ", "), td.Pos)

	frag, err := generate.Generate(td, opts)
	if err != nil {
		_, _ = fmt.Fprintf(w, "  error: %v\n", err)
		return false
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, f := range td.Fields {
		shape := typeshape.Classify(f.Type, typeshape.Pointer, typeshape.Slice)
		set, _ := directive.Parse(f.Annotations)
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", f.Name, f.TypeString(), shape.Kind, describeSet(set))
	}
	_ = tw.Flush()

	if len(frag.Methods) > 0 {
		names := make([]string, len(frag.Methods))
		for i, m := range frag.Methods {
			names[i] = m.Name
		}
		_, _ = fmt.Fprintf(w, "  builder: %s%s: %s\n", td.Name, opts.Builder.Suffix, strings.Join(names, ", "))
	}
	if frag.Debug != "" {
		_, _ = fmt.Fprintln(w, "  debug: Format")
	}
	for _, b := range frag.Bounds {
		_, _ = fmt.Fprintf(w, "  bound: %s\n", b)
	}
	for _, u := range frag.Unsatisfied {
		_, _ = fmt.Fprintf(w, "  warning: %v\n", u)
	}
	return true
}

func describeSet(s directive.Set) string {
	var parts []string
	if s.Each != nil {
		parts = append(parts, "each "+strconv.Quote(s.Each.Name))
	}
	if s.Format != nil {
		parts = append(parts, "debug "+strconv.Quote(s.Format.Format))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}
