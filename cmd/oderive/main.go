package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sghaida/oderive/internal/config"
)

// app is the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	v          *viper.Viper
	configPath string
	cfg        config.Config
	log        *zap.Logger
}

// usageError marks errors caused by how the command was invoked.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// run executes the command line and returns the process exit code:
// 0 on success, 1 when generation failed, 2 on usage errors.
func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, v: config.New(), log: zap.NewNop()}

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	_ = a.log.Sync()
	if err == nil {
		return 0
	}

	var usage usageError
	if errors.As(err, &usage) {
		_, _ = fmt.Fprintf(stderr, "oderive: %v\n", err)
		_, _ = fmt.Fprintln(stderr, "run 'oderive --help' for usage")
		return 2
	}
	a.log.Error("oderive failed", zap.Error(err))
	if a.log.Core().Enabled(zap.ErrorLevel) {
		return 1
	}
	_, _ = fmt.Fprintf(stderr, "oderive: %v\n", err)
	return 1
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// must panics if err is non-nil.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

// withUsage turns a cobra argument validator's error into a usageError.
func withUsage(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
