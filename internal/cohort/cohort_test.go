package cohort_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/nexeed/teamforge/internal/cohort"
	"github.com/nexeed/teamforge/internal/domain/features"
	"github.com/nexeed/teamforge/internal/domain/model"
)

func TestGenerator(t *testing.T) {
	convey.Convey("Given a seeded generator", t, func() {
		people := cohort.NewGenerator(cohort.WithSeed(42)).Generate(200)

		convey.Convey("Then it produces the requested number of students", func() {
			convey.So(people, convey.ShouldHaveLength, 200)
		})

		convey.Convey("Then every student is valid for matching", func() {
			req := model.Request{TeamSize: 4, Required: model.DefaultRequirement(), People: people}
			convey.So(req.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then traits are clamped and rounded to one decimal", func() {
			for _, p := range people {
				for _, v := range p.Traits() {
					convey.So(v, convey.ShouldBeBetweenOrEqual, model.TraitMin, model.TraitMax)
					convey.So(v*10, convey.ShouldAlmostEqual, float64(int64(v*10+0.5)), 1e-6)
				}
			}
		})

		convey.Convey("Then availability strings parse into known slots", func() {
			for _, p := range people {
				slots := features.ParseAvailability(p.Availability)
				if p.Availability != "" {
					convey.So(slots.Len(), convey.ShouldBeGreaterThan, 0)
				}
			}
		})

		convey.Convey("Then every role shows up", func() {
			seen := make(map[model.Role]bool)
			for _, p := range people {
				seen[p.Role] = true
			}
			convey.So(seen, convey.ShouldHaveLength, model.RoleCount)
		})

		convey.Convey("Then the same seed yields the same cohort", func() {
			again := cohort.NewGenerator(cohort.WithSeed(42)).Generate(200)
			convey.So(again, convey.ShouldResemble, people)
		})

		convey.Convey("Then a different seed yields a different cohort", func() {
			other := cohort.NewGenerator(cohort.WithSeed(7)).Generate(200)
			convey.So(other, convey.ShouldNotResemble, people)
		})
	})

	convey.Convey("Given a generator with an ID prefix", t, func() {
		people := cohort.NewGenerator(cohort.WithIDPrefix("s")).Generate(3)

		convey.Convey("Then IDs are sequential", func() {
			convey.So(people[0].ID, convey.ShouldEqual, "s001")
			convey.So(people[2].ID, convey.ShouldEqual, "s003")
		})
	})

	convey.Convey("Given a non-positive count", t, func() {
		convey.So(cohort.NewGenerator().Generate(0), convey.ShouldBeEmpty)
	})
}

func TestFile(t *testing.T) {
	convey.Convey("Given a cohort file written to a buffer", t, func() {
		people := cohort.NewGenerator(cohort.WithSeed(3), cohort.WithIDPrefix("s")).Generate(8)
		var buf bytes.Buffer
		err := cohort.Write(&buf, cohort.NewFile(people, 4, model.DefaultRequirement()))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then it uses the match request field names", func() {
			convey.So(buf.String(), convey.ShouldContainSubstring, `"team_size": 4`)
			convey.So(buf.String(), convey.ShouldContainSubstring, `"student_id": "s001"`)
			convey.So(buf.String(), convey.ShouldContainSubstring, `"required_roles"`)
		})

		convey.Convey("When it is read back and converted", func() {
			f, err := cohort.Read(&buf)
			convey.So(err, convey.ShouldBeNil)
			req, err := f.Request(5)

			convey.Convey("Then the request matches the generated population", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(req.TeamSize, convey.ShouldEqual, 4)
				convey.So(req.Required, convey.ShouldResemble, model.DefaultRequirement())
				convey.So(req.People, convey.ShouldResemble, people)
			})
		})
	})

	convey.Convey("Given a file without team size or roles", t, func() {
		f, err := cohort.Read(strings.NewReader(`{"students":[{"student_id":"a","role_pref":"Wizard","O":1,"C":2,"E":3,"A":4,"N":5}]}`))
		convey.So(err, convey.ShouldBeNil)
		req, err := f.Request(5)

		convey.Convey("Then defaults apply and unknown roles become Any", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(req.TeamSize, convey.ShouldEqual, 5)
			convey.So(req.Required, convey.ShouldResemble, model.DefaultRequirement())
			convey.So(req.People[0].Role, convey.ShouldEqual, model.RoleAny)
		})
	})

	convey.Convey("Given a file with an explicit team size of zero", t, func() {
		f, err := cohort.Read(strings.NewReader(`{"team_size":0,"students":[{"student_id":"a","O":1,"C":2,"E":3,"A":4,"N":5}]}`))
		convey.So(err, convey.ShouldBeNil)
		req, err := f.Request(5)

		convey.Convey("Then the zero is kept and fails validation", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(req.TeamSize, convey.ShouldEqual, 0)
			convey.So(errors.Is(req.Validate(), model.ErrInvalidRequest), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a student without trait fields", t, func() {
		f, err := cohort.Read(strings.NewReader(`{"students":[{"student_id":"a","O":1,"C":2,"E":3,"A":4}]}`))
		convey.So(err, convey.ShouldBeNil)
		_, err = f.Request(4)

		convey.Convey("Then the request is rejected", func() {
			convey.So(errors.Is(err, model.ErrInvalidRequest), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "trait N")
		})
	})

	convey.Convey("Given malformed JSON", t, func() {
		_, err := cohort.Read(strings.NewReader(`{"students":`))
		convey.So(err, convey.ShouldNotBeNil)
	})
}

func TestClient(t *testing.T) {
	convey.Convey("Given a fake teamforge server", t, func() {
		var gotPath, gotKey string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.Header.Get("X-API-Key")
			switch r.URL.Path {
			case "/match/run", "/match/run_learned":
				var f cohort.File
				if err := json.NewDecoder(r.Body).Decode(&f); err != nil || len(f.Students) == 0 {
					w.WriteHeader(http.StatusBadRequest)
					_, _ = w.Write([]byte(`{"code":"invalid_request","message":"no students"}`))
					return
				}
				_, _ = w.Write([]byte(`{"run_id":"r1","teams":[{"score":0.5,"members":[{"student_id":"s001","role_assigned":"PM"}],"reasons":["x"]}]}`))
			case "/runs/r1/records":
				w.Header().Set("Content-Type", "text/csv")
				_, _ = w.Write([]byte("team_id,student_id\n"))
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		client, err := cohort.NewClient(srv.URL+"/", "secret", time.Second)
		convey.So(err, convey.ShouldBeNil)
		ctx := context.Background()

		convey.Convey("When a learned match is posted", func() {
			people := cohort.NewGenerator(cohort.WithIDPrefix("s")).Generate(4)
			res, err := client.Match(ctx, cohort.NewFile(people, 4, model.DefaultRequirement()), true)

			convey.Convey("Then the learned route is used with the API key", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(gotPath, convey.ShouldEqual, "/match/run_learned")
				convey.So(gotKey, convey.ShouldEqual, "secret")
				convey.So(res.RunID, convey.ShouldEqual, "r1")
				convey.So(res.Teams, convey.ShouldHaveLength, 1)
				convey.So(res.Teams[0].Members[0].RoleAssigned, convey.ShouldEqual, "PM")
			})
		})

		convey.Convey("When the server rejects the request", func() {
			_, err := client.Match(ctx, cohort.File{}, false)

			convey.Convey("Then the error carries the server message", func() {
				convey.So(errors.Is(err, cohort.ErrRemote), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "no students")
			})
		})

		convey.Convey("When records are fetched", func() {
			var out bytes.Buffer
			err := client.Records(ctx, "r1", &out)

			convey.Convey("Then the CSV is copied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldStartWith, "team_id")
			})
		})

		convey.Convey("When records of an unknown run are fetched", func() {
			err := client.Records(ctx, "nope", &bytes.Buffer{})
			convey.So(errors.Is(err, cohort.ErrRemote), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given an invalid server URL", t, func() {
		_, err := cohort.NewClient("ftp://x", "", time.Second)
		convey.So(err, convey.ShouldNotBeNil)
	})
}
