// Command layoutpub is the operator CLI of the layout publication service.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"layoutpub/internal/cli"
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand()
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// Flag and argument errors never reached a formatter.
		cmd.PrintErrln("Error:", err)
		return cli.ExitCommandError
	}
	return cli.GetExitCode(err)
}
