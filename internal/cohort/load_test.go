package cohort_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/nexeed/teamforge/internal/adapters/http/api"
	service "github.com/nexeed/teamforge/internal/app"
	"github.com/nexeed/teamforge/internal/cohort"
	"github.com/nexeed/teamforge/internal/domain/model"
	"github.com/nexeed/teamforge/internal/domain/report"
	"github.com/nexeed/teamforge/pkg/logger"
)

func TestRunLoad(t *testing.T) {
	convey.Convey("Given a running teamforge server", t, func() {
		ctx := context.Background()
		_ = logger.Init(logger.WithWriter(io.Discard))
		log := logger.New(logger.WithWriter(io.Discard))
		svc := service.New(service.WithLogger(log), service.WithWorkerCount(2), service.WithQueueSize(64))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		client, err := cohort.NewClient(srv.URL, "", 5*time.Second)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When a load run submits heuristic cohorts", func() {
			stats, err := cohort.RunLoad(ctx, client, cohort.LoadConfig{
				Runs: 12, Size: 10, TeamSize: 4, Workers: 3, Seed: 100,
			}, log)

			convey.Convey("Then every run succeeds and verifies", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Submitted, convey.ShouldEqual, 12)
				convey.So(stats.Successful, convey.ShouldEqual, 12)
				convey.So(stats.Failed, convey.ShouldEqual, 0)
				convey.So(stats.Invalid, convey.ShouldEqual, 0)
				convey.So(stats.RunsPerSecond(), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When learned runs have no predictor", func() {
			stats, err := cohort.RunLoad(ctx, client, cohort.LoadConfig{
				Runs: 3, Size: 8, TeamSize: 4, Workers: 1, Learned: true,
			}, log)

			convey.Convey("Then runs fail without invalid results", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(stats.Failed, convey.ShouldEqual, 3)
				convey.So(stats.Invalid, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the configuration is empty", func() {
			_, err := cohort.RunLoad(ctx, client, cohort.LoadConfig{}, log)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given an unreachable server", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		client, err := cohort.NewClient(url, "", time.Second)
		convey.So(err, convey.ShouldBeNil)

		_, err = cohort.RunLoad(context.Background(), client, cohort.LoadConfig{Runs: 1, Size: 4, TeamSize: 4, Workers: 1},
			logger.New(logger.WithWriter(io.Discard)))
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestVerify(t *testing.T) {
	convey.Convey("Given a cohort of four", t, func() {
		f := cohort.NewFile(cohort.NewGenerator(cohort.WithIDPrefix("s")).Generate(4), 2, model.DefaultRequirement())
		team := func(ids ...string) report.Team {
			t := report.Team{}
			for _, id := range ids {
				t.Members = append(t.Members, report.Member{StudentID: id, RoleAssigned: "Any"})
			}
			return t
		}

		convey.Convey("Then a partition verifies", func() {
			res := &cohort.Result{Teams: []report.Team{team("s001", "s002"), team("s003", "s004")}}
			convey.So(cohort.Verify(f, res), convey.ShouldBeNil)
		})

		convey.Convey("Then a duplicate placement fails", func() {
			res := &cohort.Result{Teams: []report.Team{team("s001", "s002"), team("s002", "s004")}}
			convey.So(cohort.Verify(f, res), convey.ShouldNotBeNil)
		})

		convey.Convey("Then a missing student fails", func() {
			res := &cohort.Result{Teams: []report.Team{team("s001", "s002"), team("s003")}}
			convey.So(cohort.Verify(f, res), convey.ShouldNotBeNil)
		})

		convey.Convey("Then an unknown student fails", func() {
			res := &cohort.Result{Teams: []report.Team{team("s001", "s002"), team("s003", "x")}}
			convey.So(cohort.Verify(f, res), convey.ShouldNotBeNil)
		})

		convey.Convey("Then an oversized team fails", func() {
			res := &cohort.Result{Teams: []report.Team{team("s001", "s002", "s003", "s004")}}
			convey.So(cohort.Verify(f, res), convey.ShouldNotBeNil)
		})
	})
}
