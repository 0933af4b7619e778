package model_test

import (
	"testing"

	model "github.com/okian/marquee/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestDisplayMovie(t *testing.T) {
	convey.Convey("Given a movie summary", t, func() {
		summary := model.MovieSummary{
			ID:               550,
			Title:            "Fight Club",
			ReleaseDate:      model.ParseReleaseDate("1999-10-15"),
			PosterPath:       "/poster.jpg",
			VoteAverage:      8.4,
			OriginalLanguage: "en",
		}

		convey.Convey("When merged with a complete enrichment record", func() {
			dm := model.NewDisplayMovie(summary, model.EnrichmentRecord{
				TrailerURL:           "https://www.youtube.com/watch?v=abc",
				IMDbRating:           "8.8",
				RottenTomatoesRating: "79%",
				WatchLink:            "https://www.themoviedb.org/movie/550/watch",
			})

			convey.Convey("Then every field is carried over", func() {
				convey.So(dm.ID, convey.ShouldEqual, 550)
				convey.So(dm.Title, convey.ShouldEqual, "Fight Club")
				convey.So(dm.ReleaseDate, convey.ShouldEqual, "1999-10-15")
				convey.So(dm.PosterURL, convey.ShouldEqual, model.PosterBaseURL+"/poster.jpg")
				convey.So(dm.IMDbRating, convey.ShouldEqual, "8.8")
				convey.So(dm.HasTrailer(), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When merged with an empty record", func() {
			dm := model.NewDisplayMovie(summary, model.EnrichmentRecord{})

			convey.Convey("Then enrichment fields degrade to the sentinel", func() {
				convey.So(dm.TrailerURL, convey.ShouldEqual, model.Unavailable)
				convey.So(dm.IMDbRating, convey.ShouldEqual, model.Unavailable)
				convey.So(dm.RottenTomatoesRating, convey.ShouldEqual, model.Unavailable)
				convey.So(dm.WatchLink, convey.ShouldEqual, model.Unavailable)
				convey.So(dm.HasTrailer(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the summary lacks a date and poster", func() {
			bare := model.MovieSummary{ID: 1, Title: "Bare"}
			dm := model.NewDisplayMovie(bare, model.UnavailableRecord())

			convey.Convey("Then the date is unavailable and the poster empty", func() {
				convey.So(dm.ReleaseDate, convey.ShouldEqual, model.Unavailable)
				convey.So(dm.PosterURL, convey.ShouldEqual, "")
			})
		})
	})

	convey.Convey("Given malformed release dates", t, func() {
		convey.So(model.ParseReleaseDate(""), convey.ShouldBeNil)
		convey.So(model.ParseReleaseDate("2024-13-45"), convey.ShouldBeNil)
		convey.So(model.ParseReleaseDate("soon"), convey.ShouldBeNil)
	})

	convey.Convey("Given summaries missing required fields", t, func() {
		convey.So(model.MovieSummary{ID: 1}.Valid(), convey.ShouldBeFalse)
		convey.So(model.MovieSummary{Title: "x"}.Valid(), convey.ShouldBeFalse)
		convey.So(model.MovieSummary{ID: 1, Title: "x"}.Valid(), convey.ShouldBeTrue)
	})
}

func TestCategory(t *testing.T) {
	convey.Convey("Given category names", t, func() {
		convey.Convey("Then known names parse regardless of case and separators", func() {
			c, ok := model.ParseCategory("Top-Rated")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(c, convey.ShouldEqual, model.TopRated)

			c, ok = model.ParseCategory(" now_playing ")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(c, convey.ShouldEqual, model.NowPlaying)
		})

		convey.Convey("Then unknown names are reported", func() {
			_, ok := model.ParseCategory("trending")
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Then only the popular feed supports full filtering", func() {
			convey.So(model.Popular.SupportsFullFilter(), convey.ShouldBeTrue)
			convey.So(model.Upcoming.SupportsFullFilter(), convey.ShouldBeFalse)
			convey.So(model.TopRated.SupportsFullFilter(), convey.ShouldBeFalse)
			convey.So(model.NowPlaying.SupportsFullFilter(), convey.ShouldBeFalse)
		})

		convey.Convey("Then every category round-trips through its name", func() {
			for _, c := range model.Categories() {
				parsed, ok := model.ParseCategory(c.String())
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(parsed, convey.ShouldEqual, c)
			}
		})
	})
}

func TestQueryFilterSignature(t *testing.T) {
	convey.Convey("Given two filters", t, func() {
		a := model.QueryFilter{Year: model.IntPtr(2024), GenreID: model.IntPtr(28), Language: "en"}
		b := model.QueryFilter{Year: model.IntPtr(2024), GenreID: model.IntPtr(28), Language: "en"}

		convey.Convey("Then equal filters share a signature", func() {
			convey.So(a.Signature(), convey.ShouldEqual, b.Signature())
		})

		convey.Convey("Then any differing field changes the signature", func() {
			convey.So(a.Signature(), convey.ShouldNotEqual, model.QueryFilter{Year: model.IntPtr(2023), GenreID: model.IntPtr(28), Language: "en"}.Signature())
			convey.So(a.Signature(), convey.ShouldNotEqual, model.QueryFilter{Year: model.IntPtr(2024), Language: "en"}.Signature())
			convey.So(a.Signature(), convey.ShouldNotEqual, model.QueryFilter{Year: model.IntPtr(2024), GenreID: model.IntPtr(28)}.Signature())
			convey.So(a.Signature(), convey.ShouldNotEqual, model.QueryFilter{Year: model.IntPtr(2024), GenreID: model.IntPtr(28), Language: "en", SearchText: "x"}.Signature())
		})

		convey.Convey("Then an unset year differs from year zero", func() {
			convey.So(model.QueryFilter{}.Signature(), convey.ShouldNotEqual, model.QueryFilter{Year: model.IntPtr(0)}.Signature())
		})

		convey.Convey("Then the upstream view drops local-only fields", func() {
			f := a
			f.SearchText = "spider"
			f.GenreName = "Action"
			convey.So(f.Upstream().Signature(), convey.ShouldEqual, a.Signature())
		})
	})

	convey.Convey("Given section requests", t, func() {
		r1 := model.SectionRequest{Category: model.Popular, Limit: 10}
		r2 := model.SectionRequest{Category: model.Upcoming, Limit: 10}
		r3 := model.SectionRequest{Category: model.Popular, Limit: 5}
		convey.So(r1.Signature(), convey.ShouldNotEqual, r2.Signature())
		convey.So(r1.Signature(), convey.ShouldNotEqual, r3.Signature())
	})
}
