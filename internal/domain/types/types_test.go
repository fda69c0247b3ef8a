package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/okian/glicko/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEntry(t *testing.T) {
	Convey("Given a leaderboard entry", t, func() {
		entry := types.Entry{Rank: 2, CompetitorID: "team-a", Rating: 1612.5, RatingDeviation: 80, Volatility: 0.06}

		Convey("When it is encoded for the API", func() {
			raw, err := json.Marshal(entry)
			So(err, ShouldBeNil)

			Convey("Then it uses snake_case field names", func() {
				So(string(raw), ShouldEqual, `{"rank":2,"competitor_id":"team-a","rating":1612.5,"rating_deviation":80,"volatility":0.06}`)
			})
		})
	})
}
