package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexeed/teamforge/internal/cohort"
	"github.com/nexeed/teamforge/internal/domain/model"
	logging "github.com/nexeed/teamforge/pkg/logger"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Submit generated cohorts to a server concurrently",
	Long: `Generate cohorts and submit them to a teamforge server from several
workers at once, verifying that every result places each student exactly once.`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

var (
	loadRuns    int
	loadSize    int
	loadWorkers int
	loadTeam    int
	loadLearned bool
	loadSeed    int64
)

func init() {
	loadCmd.Flags().IntVar(&loadRuns, "runs", 100, "number of cohorts to submit")
	loadCmd.Flags().IntVar(&loadSize, "size", 40, "students per cohort")
	loadCmd.Flags().IntVar(&loadTeam, "team-size", model.DefaultTeamSize, "team size sent with each cohort")
	loadCmd.Flags().IntVar(&loadWorkers, "workers", 8, "concurrent submitters")
	loadCmd.Flags().BoolVar(&loadLearned, "learned", false, "submit learned runs")
	loadCmd.Flags().Int64Var(&loadSeed, "seed", 1, "seed of the first cohort")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	if serverURL == "" {
		return fmt.Errorf("load needs --server")
	}
	client, err := remoteClient()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stats, err := cohort.RunLoad(ctx, client, cohort.LoadConfig{
		Runs:     loadRuns,
		Size:     loadSize,
		TeamSize: loadTeam,
		Workers:  loadWorkers,
		Learned:  loadLearned,
		Seed:     loadSeed,
	}, logging.Named("load"))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "submitted %d  successful %d  replayed %d  failed %d  invalid %d\n",
		stats.Submitted, stats.Successful, stats.Replayed, stats.Failed, stats.Invalid)
	fmt.Fprintf(out, "duration %s  %.1f runs/s\n", stats.Duration.Round(time.Millisecond), stats.RunsPerSecond())
	return err
}
