package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/maintiq/rmi/internal/adapters/repository"
	"github.com/maintiq/rmi/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStore_Assessments(t *testing.T) {
	ctx := context.Background()

	Convey("Given a store seeded with one assessment", t, func() {
		s := repository.NewMemStore(repository.WithAssessments([]model.Assessment{
			{ID: "a1", ClientName: "Acme Mining", SiteName: "Mill 2", Status: "active"},
		}))

		Convey("Then the assessment is readable by ID", func() {
			a, err := s.Assessment(ctx, "a1")
			So(err, ShouldBeNil)
			So(a.ClientName, ShouldEqual, "Acme Mining")
		})

		Convey("Then an unknown ID yields ErrNotFound", func() {
			_, err := s.Assessment(ctx, "nope")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemStore_Responses(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := repository.NewMemStore()

		Convey("When a response is saved without an ID", func() {
			r := model.Response{AssessmentID: "a1", QuestionCode: "P-01", RawValue: "4"}
			So(s.SaveResponse(ctx, r), ShouldBeNil)

			got, err := s.Responses(ctx, "a1")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 1)
			So(got[0].ID, ShouldNotBeEmpty)
		})

		Convey("When a response is saved twice with the same ID it is updated", func() {
			r := model.Response{ID: "r1", AssessmentID: "a1", QuestionCode: "P-01", RawValue: "4"}
			So(s.SaveResponse(ctx, r), ShouldBeNil)

			r.NumericScore = model.Float(4)
			So(s.SaveResponse(ctx, r), ShouldBeNil)

			got, _ := s.Responses(ctx, "a1")
			So(got, ShouldHaveLength, 1)
			So(*got[0].NumericScore, ShouldEqual, 4.0)
		})
	})
}

func TestMemStore_ReplaceScores(t *testing.T) {
	ctx := context.Background()
	pillar := model.PillarPeople

	Convey("Given a store with an existing score set", t, func() {
		s := repository.NewMemStore()
		So(s.ReplaceScores(ctx, "a1", []model.Score{
			{Pillar: &pillar, FinalScore: 2.0},
			{FinalScore: 2.5},
		}), ShouldBeNil)

		Convey("When the set is replaced", func() {
			So(s.ReplaceScores(ctx, "a1", []model.Score{
				{Pillar: &pillar, FinalScore: 4.0},
			}), ShouldBeNil)

			Convey("Then only the new set remains", func() {
				got, err := s.Scores(ctx, "a1")
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].FinalScore, ShouldEqual, 4.0)
				So(got[0].AssessmentID, ShouldEqual, "a1")
				So(got[0].ID, ShouldNotBeEmpty)
			})
		})

		Convey("When replacements and reads race", func() {
			// Convey assertions are not goroutine-safe; collect outcomes
			// and assert after the race.
			var wg sync.WaitGroup
			sizes := make(chan int, 8)
			for i := 0; i < 8; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_ = s.ReplaceScores(ctx, "a1", []model.Score{
						{Pillar: &pillar, FinalScore: 3.0},
						{FinalScore: 3.0},
					})
				}()
				go func() {
					defer wg.Done()
					got, _ := s.Scores(ctx, "a1")
					sizes <- len(got)
				}()
			}
			wg.Wait()
			close(sizes)

			Convey("Then readers see whole sets only", func() {
				for n := range sizes {
					So(n == 1 || n == 2, ShouldBeTrue)
				}
			})
		})
	})
}

func TestMemStore_Analyses(t *testing.T) {
	ctx := context.Background()

	Convey("Given analyses appended over time", t, func() {
		s := repository.NewMemStore()
		So(s.SaveAnalysis(ctx, model.Analysis{
			AssessmentID: "a1", Kind: "Work Order Analysis", SampleSize: 100,
			AnalyzedAt: time.Now(),
		}), ShouldBeNil)
		So(s.SaveAnalysis(ctx, model.Analysis{
			AssessmentID: "a1", Kind: "PM Compliance Analysis", SampleSize: 40,
			AnalyzedAt: time.Now(),
		}), ShouldBeNil)

		Convey("Then they accumulate rather than replace", func() {
			got, err := s.Analyses(ctx, "a1")
			So(err, ShouldBeNil)
			So(got, ShouldHaveLength, 2)
		})
	})
}
