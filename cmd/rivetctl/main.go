// Command rivetctl is a thin CLI over the orchestrator's Pipelines API
// (spec §6): create, launch, list, get, delete — the minimal interactive
// terminal CLI spec §1 says sits outside the core's scope but every
// orchestrator still needs a way to be driven from.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/SolracHQ/rivet/internal/rivetcli"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if exitErr, ok := err.(*rivetcli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage(out io.Writer) {
	fmt.Fprint(out, `
rivetctl - command-line client for the Rivet orchestrator.

Usage:
  rivetctl [-url ORCHESTRATOR_URL] <command> [options]

Commands:
  create  -name NAME -source FILE        Create a pipeline from a script file.
  launch  (-id ID | -name NAME) [-param k=v ...]   Launch a job.
  list                                    List pipelines.
  get     -id ID                          Get one pipeline.
  delete  -id ID                          Delete a pipeline.
`)
}

func run(args []string, out, errOut io.Writer) error {
	if len(args) == 0 {
		usage(errOut)
		return &rivetcli.ExitError{Code: 2, Message: "a command is required"}
	}

	topFlags := flag.NewFlagSet("rivetctl", flag.ContinueOnError)
	topFlags.SetOutput(errOut)
	url := topFlags.String("url", envOr("RIVET_ORCHESTRATOR_URL", "http://localhost:8080"), "Orchestrator base URL.")

	// The top-level -url flag is accepted before the subcommand name only;
	// everything after the subcommand name is parsed by that subcommand's
	// own flag set.
	if err := topFlags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			usage(out)
			return nil
		}
		return &rivetcli.ExitError{Code: 2, Message: err.Error()}
	}
	if topFlags.NArg() == 0 {
		usage(errOut)
		return &rivetcli.ExitError{Code: 2, Message: "a command is required"}
	}
	cmd := topFlags.Arg(0)
	rest := topFlags.Args()[1:]

	client := rivetcli.NewPipelineClient(*url)
	defer client.Close()
	ctx := context.Background()

	switch cmd {
	case "create":
		return runCreate(ctx, client, rest, out, errOut)
	case "launch":
		return runLaunch(ctx, client, rest, out, errOut)
	case "list":
		return runList(ctx, client, out)
	case "get":
		return runGet(ctx, client, rest, out, errOut)
	case "delete":
		return runDelete(ctx, client, rest, errOut)
	case "-h", "--help", "help":
		usage(out)
		return nil
	default:
		usage(errOut)
		return &rivetcli.ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cmd)}
	}
}

func runCreate(ctx context.Context, client *rivetcli.PipelineClient, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(errOut)
	name := fs.String("name", "", "Pipeline name.")
	sourceFile := fs.String("source", "", "Path to the pipeline script.")
	if err := fs.Parse(args); err != nil {
		return &rivetcli.ExitError{Code: 2, Message: err.Error()}
	}
	if *name == "" || *sourceFile == "" {
		return &rivetcli.ExitError{Code: 2, Message: "create requires -name and -source"}
	}

	source, err := os.ReadFile(*sourceFile)
	if err != nil {
		return &rivetcli.ExitError{Code: 1, Message: err.Error()}
	}

	p, err := client.CreatePipeline(ctx, *name, string(source))
	if err != nil {
		return err
	}
	return printJSON(out, p)
}

func runLaunch(ctx context.Context, client *rivetcli.PipelineClient, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("launch", flag.ContinueOnError)
	fs.SetOutput(errOut)
	id := fs.String("id", "", "Pipeline id.")
	name := fs.String("name", "", "Pipeline name (alternative to -id).")
	params := stringSliceFlag{}
	fs.Var(&params, "param", "Parameter in key=value form; may be repeated.")
	if err := fs.Parse(args); err != nil {
		return &rivetcli.ExitError{Code: 2, Message: err.Error()}
	}
	if *id == "" && *name == "" {
		return &rivetcli.ExitError{Code: 2, Message: "launch requires -id or -name"}
	}

	parameters := map[string]string{}
	for _, p := range params {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return &rivetcli.ExitError{Code: 2, Message: fmt.Sprintf("invalid -param %q, expected key=value", p)}
		}
		parameters[kv[0]] = kv[1]
	}

	var (
		job    *rivetcli.JobDTO
		err    error
		byName = *id == ""
		target = *id
	)
	if byName {
		target = *name
	}
	job, err = client.LaunchJob(ctx, target, byName, parameters)
	if err != nil {
		return err
	}
	return printJSON(out, job)
}

func runList(ctx context.Context, client *rivetcli.PipelineClient, out io.Writer) error {
	pipelines, err := client.ListPipelines(ctx)
	if err != nil {
		return err
	}
	return printJSON(out, pipelines)
}

func runGet(ctx context.Context, client *rivetcli.PipelineClient, args []string, out, errOut io.Writer) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	id := fs.String("id", "", "Pipeline id.")
	if err := fs.Parse(args); err != nil {
		return &rivetcli.ExitError{Code: 2, Message: err.Error()}
	}
	if *id == "" {
		return &rivetcli.ExitError{Code: 2, Message: "get requires -id"}
	}
	p, err := client.GetPipeline(ctx, *id)
	if err != nil {
		return err
	}
	return printJSON(out, p)
}

func runDelete(ctx context.Context, client *rivetcli.PipelineClient, args []string, errOut io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(errOut)
	id := fs.String("id", "", "Pipeline id.")
	if err := fs.Parse(args); err != nil {
		return &rivetcli.ExitError{Code: 2, Message: err.Error()}
	}
	if *id == "" {
		return &rivetcli.ExitError{Code: 2, Message: "delete requires -id"}
	}
	return client.DeletePipeline(ctx, *id)
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// stringSliceFlag implements flag.Value for a repeatable -param k=v flag.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }
func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}
