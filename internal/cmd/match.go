package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexeed/teamforge/internal/adapters/predictor"
	"github.com/nexeed/teamforge/internal/adapters/repository"
	service "github.com/nexeed/teamforge/internal/app"
	"github.com/nexeed/teamforge/internal/cohort"
	"github.com/nexeed/teamforge/internal/config"
	"github.com/nexeed/teamforge/internal/domain/scoring"
	logging "github.com/nexeed/teamforge/pkg/logger"
)

var matchCmd = &cobra.Command{
	Use:   "match <cohort.json>",
	Short: "Form teams from a cohort file",
	Long: `Form teams from a cohort file. Without --server the engine runs in-process
using the configuration from TEAMFORGE_CONFIG and TEAMFORGE_* variables.
Use - to read the cohort from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

var (
	matchLearned      bool
	matchPredictorURL string
	matchRecords      string
	matchJSON         bool
)

func init() {
	matchCmd.Flags().BoolVar(&matchLearned, "learned", false, "score pairs with the learned predictor")
	matchCmd.Flags().StringVar(&matchPredictorURL, "predictor-url", "", "HTTP predictor URL for in-process learned runs")
	matchCmd.Flags().StringVar(&matchRecords, "records", "", "also write the run's team records as CSV to this file")
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	f, err := readCohort(cmd, args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var res *cohort.Result
	if serverURL != "" {
		res, err = matchRemote(ctx, f)
	} else {
		res, err = matchLocal(ctx, f)
	}
	if err != nil {
		return err
	}

	if matchJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printTeams(cmd.OutOrStdout(), res)
	return nil
}

func readCohort(cmd *cobra.Command, path string) (cohort.File, error) {
	if path == "-" {
		return cohort.Read(cmd.InOrStdin())
	}
	in, err := os.Open(path)
	if err != nil {
		return cohort.File{}, fmt.Errorf("failed to open cohort: %w", err)
	}
	defer in.Close()
	return cohort.Read(in)
}

func matchRemote(ctx context.Context, f cohort.File) (*cohort.Result, error) {
	client, err := remoteClient()
	if err != nil {
		return nil, err
	}
	res, err := client.Match(ctx, f, matchLearned)
	if err != nil {
		return nil, err
	}
	if matchRecords != "" {
		if err := writeFile(matchRecords, func(w io.Writer) error {
			return client.Records(ctx, res.RunID, w)
		}); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func matchLocal(ctx context.Context, f cohort.File) (*cohort.Result, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	req, err := f.Request(cfg.DefaultTeamSize)
	if err != nil {
		return nil, err
	}

	opts := []service.Option{
		service.WithHeuristicWeights(cfg.HeuristicWeights),
		service.WithMaxPeople(cfg.MaxPeople),
		service.WithWorkerCount(1),
		service.WithQueueSize(1),
	}
	kind := scoring.KindHeuristic
	if matchLearned {
		kind = scoring.KindLearned
		url := matchPredictorURL
		if url == "" {
			url = cfg.PredictorURL
		}
		if url == "" {
			return nil, fmt.Errorf("--learned needs --predictor-url or a configured predictor_url")
		}
		client, err := predictor.NewHTTPClient(url,
			predictor.WithHTTPTimeout(time.Duration(cfg.PredictorTimeoutMS)*time.Millisecond),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithPredictor(predictor.Instrument(client, "http", logging.Named("predictor"))))
	}

	svc := service.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	defer svc.Stop()

	run, err := svc.Match(ctx, req, kind)
	if err != nil {
		return nil, err
	}
	if matchRecords != "" {
		rows, err := svc.Records(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		if err := writeFile(matchRecords, func(w io.Writer) error {
			return repository.WriteCSV(w, rows)
		}); err != nil {
			return nil, err
		}
	}
	return &cohort.Result{RunID: run.ID, Teams: run.Teams, Replayed: run.Replayed}, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func printTeams(w io.Writer, res *cohort.Result) {
	fmt.Fprintf(w, "RUN %s\n", res.RunID)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, t := range res.Teams {
		members := make([]string, len(t.Members))
		for j, m := range t.Members {
			members[j] = m.StudentID + ":" + m.RoleAssigned
		}
		fmt.Fprintf(tw, "%d\t%.3f\t%s\n", i+1, t.Score, strings.Join(members, " "))
	}
	_ = tw.Flush()
}
