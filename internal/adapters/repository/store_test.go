package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/glicko/internal/adapters/repository"
	"github.com/okian/glicko/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// storeBehaviour runs the Store contract against a fresh store from newStore.
func storeBehaviour(t *testing.T, newStore func() repository.Store) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := newStore()
		defer func() { _ = s.Close() }()

		Convey("When competitors are created", func() {
			So(s.Create(ctx, model.NewCompetitor("b", 1600, 100, 0.06)), ShouldBeNil)
			So(s.Create(ctx, model.NewCompetitor("a", 1500, 200, 0.06)), ShouldBeNil)
			So(s.Create(ctx, model.NewCompetitor("c", 1600, 80, 0.05)), ShouldBeNil)
			So(s.Create(ctx, model.NewCompetitor("d", 1400, 300, 0.07)), ShouldBeNil)

			Convey("Then they can be read back", func() {
				c, err := s.Get(ctx, "a")
				So(err, ShouldBeNil)
				So(c, ShouldResemble, model.NewCompetitor("a", 1500, 200, 0.06))

				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})

			Convey("Then All lists them by ID", func() {
				all, err := s.All(ctx)
				So(err, ShouldBeNil)
				ids := make([]string, len(all))
				for i, c := range all {
					ids[i] = c.ID
				}
				So(ids, ShouldResemble, []string{"a", "b", "c", "d"})
			})

			Convey("Then a duplicate ID is rejected", func() {
				err := s.Create(ctx, model.NewCompetitor("a", 1000, 100, 0.06))
				So(errors.Is(err, repository.ErrAlreadyExists), ShouldBeTrue)
			})

			Convey("Then the leaderboard is ordered by rating with shared ranks", func() {
				top, err := s.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 4)
				So(top[0].Competitor.ID, ShouldEqual, "b")
				So(top[0].Rank, ShouldEqual, 1)
				So(top[1].Competitor.ID, ShouldEqual, "c")
				So(top[1].Rank, ShouldEqual, 1)
				So(top[2].Competitor.ID, ShouldEqual, "a")
				So(top[2].Rank, ShouldEqual, 3)
				So(top[3].Competitor.ID, ShouldEqual, "d")
				So(top[3].Rank, ShouldEqual, 4)
			})

			Convey("Then TopN honours the limit", func() {
				top, err := s.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 2)

				_, err = s.TopN(ctx, 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})

			Convey("Then Rank agrees with the leaderboard", func() {
				e, err := s.Rank(ctx, "c")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 1)
				e, err = s.Rank(ctx, "d")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 4)
				So(e.Competitor.RatingDeviation, ShouldEqual, 300.0)
			})

			Convey("Then unknown IDs are not found", func() {
				_, err := s.Get(ctx, "zz")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = s.Rank(ctx, "zz")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})

			Convey("And updates are applied", func() {
				err := s.Apply(ctx, []model.Competitor{
					model.NewCompetitor("d", 1700, 250, 0.065),
					model.NewCompetitor("b", 1450, 90, 0.06),
				})
				So(err, ShouldBeNil)

				Convey("Then the ordering follows the new ratings", func() {
					top, err := s.TopN(ctx, 4)
					So(err, ShouldBeNil)
					So(top[0].Competitor, ShouldResemble, model.NewCompetitor("d", 1700, 250, 0.065))
					So(top[1].Competitor.ID, ShouldEqual, "c")
					So(top[2].Competitor.ID, ShouldEqual, "a")
					So(top[3].Competitor.ID, ShouldEqual, "b")

					e, err := s.Rank(ctx, "b")
					So(err, ShouldBeNil)
					So(e.Rank, ShouldEqual, 4)
				})
			})

			Convey("And an update batch names an unknown competitor", func() {
				err := s.Apply(ctx, []model.Competitor{
					model.NewCompetitor("a", 2000, 50, 0.06),
					model.NewCompetitor("ghost", 1500, 350, 0.06),
				})

				Convey("Then nothing is applied", func() {
					So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
					c, err := s.Get(ctx, "a")
					So(err, ShouldBeNil)
					So(c.Rating, ShouldEqual, 1500.0)
				})
			})
		})

		Convey("When many competitors are stored", func() {
			for i := 0; i < 200; i++ {
				So(s.Create(ctx, model.NewCompetitor(fmt.Sprintf("p%03d", i), float64(1000+(i*37)%500), 100, 0.06)), ShouldBeNil)
			}

			Convey("Then every rank equals one plus the number rated higher", func() {
				all, err := s.All(ctx)
				So(err, ShouldBeNil)
				for _, c := range all[:20] {
					higher := 0
					for _, o := range all {
						if o.Rating > c.Rating {
							higher++
						}
					}
					e, err := s.Rank(ctx, c.ID)
					So(err, ShouldBeNil)
					So(e.Rank, ShouldEqual, higher+1)
				}
			})
		})
	})
}
