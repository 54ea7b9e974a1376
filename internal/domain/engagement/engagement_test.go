package engagement_test

import (
	"context"
	"os"
	"testing"

	engagement "github.com/seluk/margo/internal/domain/engagement"
	model "github.com/seluk/margo/internal/domain/model"
	"github.com/seluk/margo/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func thresholds() model.SkimThresholds {
	return model.SkimThresholds{MinDwellMs: 30000, MinInteractions: 3, GraceRatio: 0.5}
}

func roster() []model.LearnerRecord {
	return []model.LearnerRecord{
		{Name: "ada", DwellMs: 45000, Interactions: 9, Tier: model.TierStrong},
		{Name: "ben", DwellMs: 8000, Interactions: 2, Tier: model.TierWeak},
		{Name: "cho", DwellMs: 30000, Interactions: 5, Tier: model.TierMedium},
	}
}

func flagged(learners []model.LearnerRecord) []string {
	var names []string
	for _, rec := range learners {
		if rec.Flag != nil {
			names = append(names, rec.Name)
		}
	}
	return names
}

func TestControllerCreation(t *testing.T) {
	Convey("Given threshold configurations", t, func() {
		Convey("When the thresholds are valid", func() {
			c, err := engagement.NewController(thresholds())
			So(err, ShouldBeNil)
			So(c, ShouldNotBeNil)
		})

		Convey("When the grace ratio is out of range", func() {
			_, err := engagement.NewController(model.SkimThresholds{GraceRatio: 1.5})
			So(err, ShouldWrap, model.ErrInvalidThresholds)
		})

		Convey("When a count is negative", func() {
			_, err := engagement.NewController(model.SkimThresholds{MinDwellMs: -1, GraceRatio: 0.5})
			So(err, ShouldWrap, model.ErrInvalidThresholds)
		})
	})
}

func TestDemoFlagLifecycle(t *testing.T) {
	Convey("Given a controller and an unflagged roster", t, func() {
		c, err := engagement.NewController(thresholds())
		So(err, ShouldBeNil)
		ctx := context.Background()
		on := model.DetectionSwitches{Capability: true, Mode: true}
		off := model.DetectionSwitches{Capability: true, Mode: false}

		Convey("When both switches are on", func() {
			out := c.Reconcile(ctx, roster(), on)

			Convey("Then exactly the suspect exemplar should gain a demo flag", func() {
				So(flagged(out), ShouldResemble, []string{"ben"})
				So(out[1].Flag.Label, ShouldEqual, engagement.DemoFlagLabel)
				So(out[1].Flag.Origin, ShouldEqual, model.OriginDemo)
			})

			Convey("Then the input roster should be untouched", func() {
				So(flagged(roster()), ShouldBeEmpty)
			})

			Convey("And reconciling again should change nothing", func() {
				again := c.Reconcile(ctx, out, on)
				So(again, ShouldResemble, out)
			})

			Convey("And turning mode off should remove exactly that flag", func() {
				cleared := c.Reconcile(ctx, out, off)
				So(flagged(cleared), ShouldBeEmpty)

				Convey("And re-enabling should re-seed exactly one", func() {
					reseeded := c.Reconcile(ctx, cleared, on)
					So(flagged(reseeded), ShouldResemble, []string{"ben"})
				})
			})
		})

		Convey("When capability is off even with mode on", func() {
			out := c.Reconcile(ctx, roster(), model.DetectionSwitches{Capability: false, Mode: true})
			So(flagged(out), ShouldBeEmpty)
		})

		Convey("When the roster is empty", func() {
			So(c.Reconcile(ctx, nil, on), ShouldBeEmpty)
		})
	})
}

func TestExemplarSelection(t *testing.T) {
	Convey("Given a controller", t, func() {
		c, err := engagement.NewController(thresholds())
		So(err, ShouldBeNil)
		ctx := context.Background()
		on := model.DetectionSwitches{Capability: true, Mode: true}

		Convey("When two suspects tie on the dwell ratio", func() {
			out := c.Reconcile(ctx, []model.LearnerRecord{
				{Name: "zoe", DwellMs: 4000, Interactions: 2},
				{Name: "amy", DwellMs: 4000, Interactions: 2},
			}, on)

			Convey("Then the name should break the tie", func() {
				So(flagged(out), ShouldResemble, []string{"amy"})
			})
		})

		Convey("When nobody falls under the thresholds", func() {
			out := c.Reconcile(ctx, []model.LearnerRecord{
				{Name: "ada", DwellMs: 45000, Interactions: 9},
				{Name: "cho", DwellMs: 60000, Interactions: 10},
			}, on)

			Convey("Then the lowest ratio should still be flagged", func() {
				So(flagged(out), ShouldResemble, []string{"ada"})
			})
		})

		Convey("When a suspect reports zero interactions", func() {
			out := c.Reconcile(ctx, []model.LearnerRecord{
				{Name: "ben", DwellMs: 1000, Interactions: 0},
				{Name: "cho", DwellMs: 500, Interactions: 1},
			}, on)

			Convey("Then the ratio floor should keep the pick deterministic", func() {
				So(flagged(out), ShouldResemble, []string{"cho"})
			})
		})
	})
}

func TestPersistedFlags(t *testing.T) {
	Convey("Given a controller and a roster", t, func() {
		c, err := engagement.NewController(thresholds())
		So(err, ShouldBeNil)
		ctx := context.Background()
		on := model.DetectionSwitches{Capability: true, Mode: true}
		off := model.DetectionSwitches{Capability: false, Mode: false}

		Convey("When a persisted flag is seeded", func() {
			out, err := c.SeedPersisted(ctx, roster(), "cho", "teacher review")
			So(err, ShouldBeNil)
			So(out[2].Flag.Origin, ShouldEqual, model.OriginPersisted)

			Convey("Then three toggle cycles should leave it alone", func() {
				for i := 0; i < 3; i++ {
					out = c.Reconcile(ctx, out, on)
					out = c.Reconcile(ctx, out, off)
				}
				So(flagged(out), ShouldResemble, []string{"cho"})
				So(out[2].Flag.Origin, ShouldEqual, model.OriginPersisted)
				So(out[2].Flag.Label, ShouldEqual, "teacher review")
			})

			Convey("Then active reconciliation should not add a demo flag", func() {
				next := c.Reconcile(ctx, out, on)
				demo, persisted := engagement.CountFlags(next)
				So(demo, ShouldEqual, 0)
				So(persisted, ShouldEqual, 1)
			})

			Convey("And an explicit clear should remove it", func() {
				cleared, err := c.ClearPersisted(ctx, out, "cho")
				So(err, ShouldBeNil)
				So(flagged(cleared), ShouldBeEmpty)
			})
		})

		Convey("When seeding replaces a demo flag", func() {
			withDemo := c.Reconcile(ctx, roster(), on)
			So(flagged(withDemo), ShouldResemble, []string{"ben"})

			out, err := c.SeedPersisted(ctx, withDemo, "ben", "confirmed by teacher")
			So(err, ShouldBeNil)
			So(out[1].Flag.Origin, ShouldEqual, model.OriginPersisted)

			Convey("Then switch-off should no longer remove it", func() {
				kept := c.Reconcile(ctx, out, off)
				So(flagged(kept), ShouldResemble, []string{"ben"})
			})
		})

		Convey("When clearing a learner whose flag is demo", func() {
			withDemo := c.Reconcile(ctx, roster(), on)
			out, err := c.ClearPersisted(ctx, withDemo, "ben")
			So(err, ShouldBeNil)

			Convey("Then the demo flag should stay", func() {
				So(flagged(out), ShouldResemble, []string{"ben"})
				So(out[1].Flag.Origin, ShouldEqual, model.OriginDemo)
			})
		})

		Convey("When the learner is unknown", func() {
			_, err := c.SeedPersisted(ctx, roster(), "nobody", "label")
			So(err, ShouldWrap, engagement.ErrUnknownLearner)

			_, err = c.ClearPersisted(ctx, roster(), "nobody")
			So(err, ShouldWrap, engagement.ErrUnknownLearner)
		})
	})
}
