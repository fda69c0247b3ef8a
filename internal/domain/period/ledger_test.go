package period_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/glicko/internal/domain/model"
	"github.com/okian/glicko/internal/domain/period"
	. "github.com/smartystreets/goconvey/convey"
)

func match(id, home, away string, score float64) model.Match {
	return model.Match{ID: id, HomeID: home, AwayID: away, HomeScore: score}
}

func TestLedger(t *testing.T) {
	Convey("Given an empty ledger", t, func() {
		ctx := context.Background()
		l := period.NewLedger()

		Convey("When valid matches are recorded", func() {
			So(l.Record(ctx, match("m1", "a", "b", model.Win)), ShouldBeNil)
			So(l.Record(ctx, match("m2", "b", "c", model.Draw)), ShouldBeNil)

			Convey("Then they are counted", func() {
				So(l.Len(ctx), ShouldEqual, 2)
			})

			Convey("And draining returns them in order and empties the ledger", func() {
				drained := l.Drain(ctx)
				So(len(drained), ShouldEqual, 2)
				So(drained[0].ID, ShouldEqual, "m1")
				So(drained[1].ID, ShouldEqual, "m2")
				So(l.Len(ctx), ShouldEqual, 0)

				Convey("And restoring puts them ahead of newer matches", func() {
					So(l.Record(ctx, match("m3", "a", "c", model.Loss)), ShouldBeNil)
					l.Restore(ctx, drained)
					again := l.Drain(ctx)
					So(len(again), ShouldEqual, 3)
					So(again[0].ID, ShouldEqual, "m1")
					So(again[1].ID, ShouldEqual, "m2")
					So(again[2].ID, ShouldEqual, "m3")
				})
			})
		})

		Convey("When invalid matches are recorded", func() {
			cases := []model.Match{
				match("self", "a", "a", model.Win),
				match("score", "a", "b", 0.3),
				match("nohome", "", "b", model.Win),
				match("noaway", "a", " ", model.Win),
			}
			for _, m := range cases {
				err := l.Record(ctx, m)
				So(errors.Is(err, period.ErrInvalidMatch), ShouldBeTrue)
			}

			Convey("Then nothing is kept", func() {
				So(l.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When matches are recorded concurrently", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = l.Record(ctx, match("m", "a", "b", model.Draw))
				}()
			}
			wg.Wait()

			Convey("Then none are lost", func() {
				So(l.Len(ctx), ShouldEqual, 50)
			})
		})
	})
}

func TestGroup(t *testing.T) {
	Convey("Given matches from one period", t, func() {
		matches := []model.Match{
			match("m1", "a", "b", model.Win),
			match("m2", "c", "a", model.Win),
			match("m3", "b", "a", model.Draw),
			match("m4", "a", "b", model.Loss),
		}
		schedules := period.Group(matches)

		Convey("Then every participant has a schedule", func() {
			So(len(schedules), ShouldEqual, 3)
		})

		Convey("Then opponents are ordered by first meeting", func() {
			So(schedules["a"].OpponentIDs, ShouldResemble, []string{"b", "c"})
			So(schedules["b"].OpponentIDs, ShouldResemble, []string{"a"})
		})

		Convey("Then each side sees its own scores", func() {
			So(schedules["a"].Outcomes, ShouldResemble, [][]float64{{1, 0.5, 0}, {0}})
			So(schedules["b"].Outcomes, ShouldResemble, [][]float64{{0, 0.5, 1}})
			So(schedules["c"].Outcomes, ShouldResemble, [][]float64{{1}})
		})

		Convey("Then games are counted per schedule", func() {
			So(schedules["a"].Games(), ShouldEqual, 4)
			So(schedules["c"].Games(), ShouldEqual, 1)
		})
	})

	Convey("Given no matches", t, func() {
		So(period.Group(nil), ShouldBeEmpty)
	})
}
