package main

import (
	"bytes"
	"context"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

// historyctlCommand runs the CLI in-process against the real cobra command
// tree, so script files exercise the actual wiring without forking a
// binary. Output is captured by redirecting the root command's writers
// rather than the process's os.Stdout, since every subcommand writes
// through cmd.OutOrStdout()/OutOrStderr().
func historyctlCommand() script.Cmd {
	return script.Command(
		script.CmdUsage{
			Summary: "run historyctl",
			Args:    "args...",
		},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			var stdout, stderr bytes.Buffer
			rootCmd.SetOut(&stdout)
			rootCmd.SetErr(&stderr)
			rootCmd.SetArgs(args)
			err := rootCmd.Execute()
			return func(*script.State) (string, string, error) {
				return stdout.String(), stderr.String(), err
			}, nil
		},
	)
}

func TestScripts(t *testing.T) {
	ctx := context.Background()
	engine := &script.Engine{
		Cmds:  script.DefaultCmds(),
		Conds: script.DefaultConds(),
	}
	engine.Cmds["historyctl"] = historyctlCommand()

	env := []string{"HOME=/no-home"}
	scripttest.Test(t, ctx, engine, env, "testdata/*.txtar")
}
