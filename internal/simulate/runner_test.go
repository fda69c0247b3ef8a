package simulate_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/glicko/internal/adapters/http/api"
	service "github.com/okian/glicko/internal/app"
	"github.com/okian/glicko/internal/simulate"
	"github.com/okian/glicko/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	Convey("Given a rating service behind an HTTP server", t, func() {
		So(logger.Init(logger.WithWriter(io.Discard)), ShouldBeNil)
		ctx := context.Background()

		svc := service.New(service.WithAPIKey("key"), service.WithWorkerCount(4))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, 100).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		cfg := &simulate.Config{
			BaseURL:       srv.URL,
			Competitors:   20,
			Matches:       300,
			TopN:          10,
			Workers:       4,
			Timeout:       5 * time.Second,
			SettleTimeout: 5 * time.Second,
			APIKey:        "key",
			Seed:          42,
		}

		Convey("When a simulation runs", func() {
			stats, err := simulate.Run(ctx, cfg)

			Convey("Then the whole period is rated", func() {
				So(err, ShouldBeNil)
				So(stats.CompetitorsRegistered, ShouldEqual, 20)
				So(stats.MatchesAccepted, ShouldEqual, 300)
				So(stats.MatchesFailed, ShouldEqual, 0)
				So(stats.Summary.RunID, ShouldNotBeEmpty)
				So(stats.Summary.Competitors, ShouldEqual, 20)
				So(stats.Summary.Matches, ShouldEqual, 300)
				So(stats.LeaderboardEntries, ShouldEqual, 10)
				So(svc.Pending(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the API key is wrong", func() {
			cfg.APIKey = "wrong"
			_, err := simulate.Run(ctx, cfg)
			So(err, ShouldNotBeNil)
		})

		Convey("When the configuration is unusable", func() {
			cfg.Competitors = 1
			_, err := simulate.Run(ctx, cfg)
			So(errors.Is(err, simulate.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
