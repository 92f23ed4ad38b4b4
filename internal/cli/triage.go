package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/socwatch/internal/client"
	"github.com/ppiankov/socwatch/internal/model"
)

var (
	triageSummary  bool
	triageAI       bool
	triageOffline  bool
	triagePolicy   string
	triageRemote   string
	triageAuditLog string
)

func init() {
	rootCmd.AddCommand(triageCmd)
	triageCmd.Flags().BoolVar(&triageSummary, "summary", false, "Print only the analyst summary")
	triageCmd.Flags().BoolVar(&triageAI, "ai", false, "Run the advisory layer")
	triageCmd.Flags().BoolVar(&triageOffline, "offline", false, "Force the offline advisory fallback")
	triageCmd.Flags().StringVar(&triagePolicy, "policy", "", "Path to policy rules (.yaml, .yml or .json)")
	triageCmd.Flags().StringVar(&triageRemote, "remote", "", "Triage on a remote gRPC server at this address")
	triageCmd.Flags().StringVar(&triageAuditLog, "audit-log", "", "Path to audit log JSONL file")
}

var triageCmd = &cobra.Command{
	Use:   "triage [request.json ...]",
	Short: "Triage incidents from files or stdin",
	Long: "Reads one or more request documents of the form {\"incident\": {...}, \"signals\": {...}}\n" +
		"and prints each result as JSON. Without arguments the request is read from stdin.",
	RunE: runTriage,
}

type triageInput struct {
	Incident map[string]any `json:"incident"`
	Signals  map[string]any `json:"signals"`
}

func runTriage(cmd *cobra.Command, args []string) error {
	if triagePolicy != "" {
		cfg.PolicyFile = triagePolicy
	}
	if triageAuditLog != "" {
		cfg.AuditLog = triageAuditLog
	}
	if triageOffline {
		cfg.LLM.Offline = true
	}

	inputs, err := readTriageInputs(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	run, cleanup, err := triageRunner(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	for _, in := range inputs {
		if in.Incident == nil {
			return fmt.Errorf("request has no incident object")
		}
		result, err := run(ctx, in)
		if err != nil {
			return err
		}
		if err := printResult(out, result); err != nil {
			return err
		}
	}
	return nil
}

// triageRunner returns a local or remote triage function. Both produce the
// result in its JSON form.
func triageRunner(ctx context.Context) (func(context.Context, triageInput) (any, error), func(), error) {
	if triageRemote != "" {
		c, err := client.New(triageRemote)
		if err != nil {
			return nil, nil, err
		}
		run := func(ctx context.Context, in triageInput) (any, error) {
			callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
			defer cancel()
			return c.Triage(callCtx, in.Incident, in.Signals, triageAI)
		}
		return run, func() { _ = c.Close() }, nil
	}

	rt, err := newRuntime(ctx, false)
	if err != nil {
		return nil, nil, err
	}
	run := func(ctx context.Context, in triageInput) (any, error) {
		var (
			res *model.Result
			err error
		)
		if triageAI {
			res, err = rt.svc.TriageAI(ctx, in.Incident, in.Signals)
		} else {
			res, err = rt.svc.Triage(ctx, in.Incident, in.Signals)
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	return run, func() { rt.Close(context.Background()) }, nil
}

func readTriageInputs(stdin io.Reader, paths []string) ([]triageInput, error) {
	if len(paths) == 0 {
		in, err := decodeTriageInput(stdin, "stdin")
		if err != nil {
			return nil, err
		}
		return []triageInput{in}, nil
	}

	inputs := make([]triageInput, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open request: %w", err)
		}
		in, err := decodeTriageInput(f, p)
		f.Close()
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func decodeTriageInput(r io.Reader, name string) (triageInput, error) {
	var in triageInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return in, fmt.Errorf("parse request %s: %w", name, err)
	}
	return in, nil
}

func printResult(w io.Writer, result any) error {
	if triageSummary {
		return printSummary(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// printSummary renders the brief as plain text. Remote results arrive as
// maps, so the brief is read back through JSON either way.
func printSummary(w io.Writer, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	var r struct {
		Summary *model.Brief `json:"summary"`
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Summary == nil {
		return fmt.Errorf("result has no summary")
	}
	fmt.Fprintln(w, r.Summary.Headline)
	for _, line := range r.Summary.Summary {
		fmt.Fprintf(w, "  - %s\n", line)
	}
	fmt.Fprintf(w, "Next step: %s\n", r.Summary.RecommendedNextStep)
	return nil
}
