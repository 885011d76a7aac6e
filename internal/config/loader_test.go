package config_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/nexeed/teamforge/internal/config"
	"github.com/nexeed/teamforge/internal/domain/scoring"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.DefaultTeamSize, convey.ShouldEqual, 4)
			convey.So(cfg.MaxPeople, convey.ShouldEqual, 2000)
			convey.So(cfg.Workers, convey.ShouldEqual, 0)
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
			convey.So(cfg.PredictorKind, convey.ShouldEqual, config.PredictorNone)
			convey.So(cfg.RecordStore, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.HeuristicWeights, convey.ShouldResemble, scoring.DefaultWeights())
			convey.So(cfg.Validate(), convey.ShouldBeNil)
			convey.So(cfg.NeedsNATS(), convey.ShouldBeFalse)
		})
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.RunHistory, convey.ShouldEqual, 1024)
				convey.So(cfg.PredictorTimeoutMS, convey.ShouldEqual, 5000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TEAMFORGE_ADDR", ":8080")
			_ = os.Setenv("TEAMFORGE_API_KEY", "secret")
			_ = os.Setenv("TEAMFORGE_MAX_PEOPLE", "500")
			_ = os.Setenv("TEAMFORGE_PREDICTOR_KIND", "HTTP")
			_ = os.Setenv("TEAMFORGE_PREDICTOR_URL", "http://model:8000")
			_ = os.Setenv("TEAMFORGE_PREDICTOR_API_KEY", "model-key")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.APIKey, convey.ShouldEqual, "secret")
				convey.So(cfg.MaxPeople, convey.ShouldEqual, 500)
				convey.So(cfg.PredictorKind, convey.ShouldEqual, config.PredictorHTTP)
				convey.So(cfg.PredictorURL, convey.ShouldEqual, "http://model:8000")
				convey.So(cfg.PredictorAPIKey, convey.ShouldEqual, "model-key")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":9090"
default_team_size: 5
record_store: kv
record_bucket: cohort_records
heuristic_weights:
  C: 0.5
  A: 0.1
  E: 0.1
  O: 0.1
  N: 0.1
  AVAIL: 0.1
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TEAMFORGE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DefaultTeamSize, convey.ShouldEqual, 5)
				convey.So(cfg.RecordStore, convey.ShouldEqual, config.StoreKV)
				convey.So(cfg.RecordBucket, convey.ShouldEqual, "cohort_records")
				convey.So(cfg.HeuristicWeights.C, convey.ShouldEqual, 0.5)
				convey.So(cfg.MaxPeople, convey.ShouldEqual, 2000)
				convey.So(cfg.NeedsNATS(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nmax_people: 100\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TEAMFORGE_CONFIG", tmpFile)
			_ = os.Setenv("TEAMFORGE_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxPeople, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When loading config with an invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TEAMFORGE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-existent file", func() {
			_ = os.Setenv("TEAMFORGE_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("TEAMFORGE_MAX_PEOPLE", "lots")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestConfigValidation(t *testing.T) {
	convey.Convey("Given config validation", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		cases := []struct {
			name string
			env  map[string]string
			want string
		}{
			{"empty addr", map[string]string{"TEAMFORGE_ADDR": ""}, "addr must not be empty"},
			{"small team size", map[string]string{"TEAMFORGE_DEFAULT_TEAM_SIZE": "1"}, "default_team_size"},
			{"zero max people", map[string]string{"TEAMFORGE_MAX_PEOPLE": "0"}, "max_people"},
			{"zero run history", map[string]string{"TEAMFORGE_RUN_HISTORY": "0"}, "run_history"},
			{"negative workers", map[string]string{"TEAMFORGE_WORKERS": "-1"}, "workers"},
			{"zero queue size", map[string]string{"TEAMFORGE_QUEUE_SIZE": "0"}, "queue_size"},
			{"unknown predictor", map[string]string{"TEAMFORGE_PREDICTOR_KIND": "grpc"}, "unknown predictor_kind"},
			{"http predictor without url", map[string]string{"TEAMFORGE_PREDICTOR_KIND": "http"}, "predictor_url"},
			{"nats predictor without subject", map[string]string{
				"TEAMFORGE_PREDICTOR_KIND":    "nats",
				"TEAMFORGE_PREDICTOR_SUBJECT": "",
			}, "predictor_subject"},
			{"unknown store", map[string]string{"TEAMFORGE_RECORD_STORE": "s3"}, "unknown record_store"},
			{"kv store without bucket", map[string]string{
				"TEAMFORGE_RECORD_STORE":  "kv",
				"TEAMFORGE_RECORD_BUCKET": "",
			}, "record_bucket"},
		}

		for _, tc := range cases {
			convey.Convey("When the config has "+tc.name, func() {
				for k, v := range tc.env {
					_ = os.Setenv(k, v)
				}
				defer clearConfigEnvVars()

				cfg, err := config.Load(ctx)

				convey.Convey("Then it should return a validation error", func() {
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
					convey.So(err.Error(), convey.ShouldContainSubstring, tc.want)
					convey.So(cfg, convey.ShouldBeNil)
				})
			})
		}

		convey.Convey("When heuristic weights do not sum to one", func() {
			tmpFile := createTempConfigFile("heuristic_weights:\n  C: 0.9\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("TEAMFORGE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(errors.Is(err, scoring.ErrInvalidWeights), convey.ShouldBeTrue)
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "teamforge-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
