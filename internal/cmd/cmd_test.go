package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/spf13/cobra"

	"github.com/nexeed/teamforge/internal/adapters/http/api"
	service "github.com/nexeed/teamforge/internal/app"
	"github.com/nexeed/teamforge/internal/cohort"
	"github.com/nexeed/teamforge/pkg/logger"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	resetFlags()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// resetFlags restores flag variables between runs of the shared root command.
func resetFlags() {
	serverURL, apiKey, timeout, logLevel = "", "", 30*time.Second, "warn"
	genCount, genSeed, genTeamSize, genIDPrefix, genOut = 40, 0, 4, "s", "-"
	matchLearned, matchPredictorURL, matchRecords, matchJSON = false, "", "", false
	exportOut = "-"
	loadRuns, loadSize, loadTeam, loadWorkers, loadLearned, loadSeed = 100, 40, 4, 8, false, 1
}

func writeCohort(t *testing.T, dir string, n int) string {
	t.Helper()
	path := filepath.Join(dir, "cohort.json")
	out, err := executeCommand(rootCmd, "generate", "--count", strconv.Itoa(n), "--seed", "5", "-o", path)
	if err != nil {
		t.Fatalf("generate: %v (%s)", err, out)
	}
	return path
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		names := make(map[string]bool)
		for _, c := range rootCmd.Commands() {
			names[c.Name()] = true
		}

		convey.Convey("Then every subcommand is registered", func() {
			for _, want := range []string{"generate", "match", "export", "load"} {
				convey.So(names[want], convey.ShouldBeTrue)
			}
		})
	})
}

func TestGenerateCommand(t *testing.T) {
	convey.Convey("Given generate with a fixed seed", t, func() {
		first, err := executeCommand(rootCmd, "generate", "-n", "6", "--seed", "9")
		convey.So(err, convey.ShouldBeNil)
		second, err := executeCommand(rootCmd, "generate", "-n", "6", "--seed", "9")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the output is a reproducible cohort file", func() {
			convey.So(first, convey.ShouldEqual, second)
			f, err := cohort.Read(strings.NewReader(first))
			convey.So(err, convey.ShouldBeNil)
			convey.So(f.Students, convey.ShouldHaveLength, 6)
			convey.So(f.Students[0].StudentID, convey.ShouldEqual, "s001")
			convey.So(*f.TeamSize, convey.ShouldEqual, 4)
		})
	})

	convey.Convey("Given generate with a zero count", t, func() {
		_, err := executeCommand(rootCmd, "generate", "-n", "0")
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestMatchCommand(t *testing.T) {
	convey.Convey("Given a generated cohort of eight students", t, func() {
		dir := t.TempDir()
		path := writeCohort(t, dir, 8)

		convey.Convey("When matched in-process with records", func() {
			records := filepath.Join(dir, "records.csv")
			out, err := executeCommand(rootCmd, "match", path, "--json", "--records", records)

			convey.Convey("Then two teams of four are printed and records are written", func() {
				convey.So(err, convey.ShouldBeNil)
				var res cohort.Result
				convey.So(json.Unmarshal([]byte(out), &res), convey.ShouldBeNil)
				convey.So(res.RunID, convey.ShouldNotBeEmpty)
				convey.So(res.Teams, convey.ShouldHaveLength, 2)
				for _, team := range res.Teams {
					convey.So(team.Members, convey.ShouldHaveLength, 4)
				}

				data, err := os.ReadFile(records)
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				convey.So(lines, convey.ShouldHaveLength, 9)
			})
		})

		convey.Convey("When matched in-process as text", func() {
			out, err := executeCommand(rootCmd, "match", path)

			convey.Convey("Then one line per team follows the run header", func() {
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(out), "\n")
				convey.So(lines, convey.ShouldHaveLength, 3)
				convey.So(lines[0], convey.ShouldStartWith, "RUN ")
			})
		})

		convey.Convey("When a learned match has no predictor", func() {
			_, err := executeCommand(rootCmd, "match", path, "--learned")

			convey.Convey("Then it fails before running", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "predictor")
			})
		})

		convey.Convey("When matched against a server", func() {
			var gotKey string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotKey = r.Header.Get("X-API-Key")
				_, _ = w.Write([]byte(`{"run_id":"remote-1","teams":[]}`))
			}))
			defer srv.Close()

			out, err := executeCommand(rootCmd, "match", path, "--server", srv.URL, "--api-key", "k")

			convey.Convey("Then the server result is printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "RUN remote-1")
				convey.So(gotKey, convey.ShouldEqual, "k")
			})
		})
	})

	convey.Convey("Given a missing cohort file", t, func() {
		_, err := executeCommand(rootCmd, "match", filepath.Join(t.TempDir(), "nope.json"))
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestExportCommand(t *testing.T) {
	convey.Convey("Given export without a server", t, func() {
		_, err := executeCommand(rootCmd, "export", "run-1")
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Given a server with records", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/runs/run-1/records" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte("team_id,student_id\nt1,s001\n"))
		}))
		defer srv.Close()

		out, err := executeCommand(rootCmd, "export", "run-1", "--server", srv.URL)

		convey.Convey("Then the CSV is written to stdout", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "t1,s001")
		})
	})
}

func TestLoadCommand(t *testing.T) {
	convey.Convey("Given load without a server", t, func() {
		_, err := executeCommand(rootCmd, "load")
		convey.So(err, convey.ShouldNotBeNil)
	})

	convey.Convey("Given a running teamforge server", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithLogger(logger.New(logger.WithWriter(io.Discard))), service.WithWorkerCount(2))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		out, err := executeCommand(rootCmd, "load", "--server", srv.URL, "--runs", "5", "--size", "8", "--workers", "2")

		convey.Convey("Then every run succeeds", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, "submitted 5  successful 5")
			convey.So(out, convey.ShouldContainSubstring, "invalid 0")
		})
	})
}
