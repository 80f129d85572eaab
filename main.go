package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fjacquet/bankfeed/cmd/accounts"
	"fjacquet/bankfeed/cmd/categorize"
	"fjacquet/bankfeed/cmd/export"
	"fjacquet/bankfeed/cmd/formats"
	"fjacquet/bankfeed/cmd/importcmd"
	"fjacquet/bankfeed/cmd/imports"
	"fjacquet/bankfeed/cmd/root"
	"fjacquet/bankfeed/cmd/rules"
	"fjacquet/bankfeed/cmd/transfers"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(importcmd.Cmd)
	root.Cmd.AddCommand(accounts.Cmd)
	root.Cmd.AddCommand(categorize.Cmd)
	root.Cmd.AddCommand(rules.Cmd)
	root.Cmd.AddCommand(transfers.Cmd)
	root.Cmd.AddCommand(imports.Cmd)
	root.Cmd.AddCommand(export.Cmd)
	root.Cmd.AddCommand(formats.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.Cmd.ExecuteContext(ctx)
	stop()
	if closeErr := root.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
