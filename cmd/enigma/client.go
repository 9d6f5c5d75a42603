package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dusk-indust/enigma/internal/server"
)

const defaultServerURL = "http://localhost:8000"

// clientFlagSet returns a FlagSet with the shared -server flag bound to url.
func clientFlagSet(name string, url *string, stderr io.Writer) *flag.FlagSet {
	def := defaultServerURL
	if v := os.Getenv("ENIGMA_SERVER"); v != "" {
		def = v
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(url, "server", def, "base URL of a running enigma server")
	return fs
}

func runAgents(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var url string
	fs := clientFlagSet("agents", &url, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}

	infos, err := server.NewClient(url).ListAgents(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(stdout, "No agents registered.")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDESCRIPTION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\n", info.Name, info.Description)
	}
	return tw.Flush()
}

func runInfo(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var url string
	fs := clientFlagSet("info", &url, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: enigma info [-server URL] NAME")
	}

	info, err := server.NewClient(url).GetAgent(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Name:        %s\n", info.Name)
	fmt.Fprintf(stdout, "Description: %s\n", info.Description)
	return nil
}

func runProcess(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var url string
	fs := clientFlagSet("process", &url, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: enigma process [-server URL] NAME MESSAGE")
	}

	resp, err := server.NewClient(url).Process(ctx, fs.Arg(0), fs.Arg(1))
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, resp.Response)
	return nil
}
