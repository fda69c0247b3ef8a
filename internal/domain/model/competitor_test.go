package model_test

import (
	"testing"
	"time"

	model "github.com/okian/glicko/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestCompetitor(t *testing.T) {
	convey.Convey("Given a competitor built with NewCompetitor", t, func() {
		c := model.NewCompetitor("team-a", 1500, 200, 0.06)

		convey.Convey("Then every field is kept as given", func() {
			convey.So(c.ID, convey.ShouldEqual, "team-a")
			convey.So(c.Rating, convey.ShouldEqual, 1500.0)
			convey.So(c.RatingDeviation, convey.ShouldEqual, 200.0)
			convey.So(c.Volatility, convey.ShouldEqual, 0.06)
		})

		convey.Convey("Then it compares equal to an identical value", func() {
			convey.So(c == model.Competitor{ID: "team-a", Rating: 1500, RatingDeviation: 200, Volatility: 0.06}, convey.ShouldBeTrue)
		})

		convey.Convey("Then it prints its state", func() {
			convey.So(c.String(), convey.ShouldEqual, "team-a: rating=1500.00 rd=200.00 volatility=0.060000")
		})

		convey.Convey("When invalid values are supplied", func() {
			bad := model.NewCompetitor("team-b", 1500, -1, 0)

			convey.Convey("Then construction does not validate", func() {
				convey.So(bad.RatingDeviation, convey.ShouldEqual, -1.0)
				convey.So(bad.Volatility, convey.ShouldEqual, 0.0)
			})
		})
	})
}

func TestMatch(t *testing.T) {
	convey.Convey("Given a match won by the home side", t, func() {
		m := model.Match{ID: "m-1", HomeID: "a", AwayID: "b", HomeScore: model.Win, PlayedAt: time.Now()}

		convey.Convey("Then the away side lost", func() {
			convey.So(m.AwayScore(), convey.ShouldEqual, model.Loss)
		})

		convey.Convey("When the match is a draw", func() {
			m.HomeScore = model.Draw

			convey.Convey("Then both sides scored a half", func() {
				convey.So(m.AwayScore(), convey.ShouldEqual, model.Draw)
			})
		})
	})

	convey.Convey("Given candidate scores", t, func() {
		convey.So(model.ValidScore(0), convey.ShouldBeTrue)
		convey.So(model.ValidScore(0.5), convey.ShouldBeTrue)
		convey.So(model.ValidScore(1), convey.ShouldBeTrue)
		convey.So(model.ValidScore(0.3), convey.ShouldBeFalse)
		convey.So(model.ValidScore(-1), convey.ShouldBeFalse)
		convey.So(model.ValidScore(1.5), convey.ShouldBeFalse)
	})
}
