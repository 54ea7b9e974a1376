package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/seluk/margo/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRingDeduper(t *testing.T) {
	Convey("Given a new deduper", t, func() {
		Convey("When created with defaults", func() {
			d := dedupe.NewRingDeduper()
			So(d, ShouldNotBeNil)
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When recording capture events", func() {
			d := dedupe.NewRingDeduper()

			Convey("And the event is new", func() {
				So(d.SeenAndRecord(context.Background(), "sel-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And the event is a browser replay", func() {
				d.SeenAndRecord(context.Background(), "sel-1")

				So(d.SeenAndRecord(context.Background(), "sel-1"), ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})

			Convey("And several distinct events arrive", func() {
				ids := []string{"sel-1", "sel-2", "ans-1", "ans-2", "sel-3"}
				for _, id := range ids {
					So(d.SeenAndRecord(context.Background(), id), ShouldBeFalse)
				}

				So(d.Size(), ShouldEqual, int64(len(ids)))
				for _, id := range ids {
					So(d.SeenAndRecord(context.Background(), id), ShouldBeTrue)
				}
			})
		})

		Convey("When unrecording after a failed enqueue", func() {
			d := dedupe.NewRingDeduper()
			d.SeenAndRecord(context.Background(), "sel-1")
			So(d.Size(), ShouldEqual, 1)

			d.Unrecord(context.Background(), "sel-1")

			Convey("Then the id should be retryable", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(context.Background(), "sel-1"), ShouldBeFalse)
			})

			Convey("And unrecording an unknown id should be a no-op", func() {
				d.Unrecord(context.Background(), "never-seen")
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})
}

func TestRingEviction(t *testing.T) {
	Convey("Given a deduper bounded to three ids", t, func() {
		d := dedupe.NewRingDeduper(dedupe.WithMaxSize(3))
		for _, id := range []string{"sel-1", "sel-2", "sel-3"} {
			So(d.SeenAndRecord(context.Background(), id), ShouldBeFalse)
		}
		So(d.Size(), ShouldEqual, 3)

		Convey("When a fourth id arrives", func() {
			So(d.SeenAndRecord(context.Background(), "sel-4"), ShouldBeFalse)

			Convey("Then the oldest id should have aged out", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(context.Background(), "sel-1"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 3)
			})

			Convey("Then the newer ids should still be remembered", func() {
				So(d.SeenAndRecord(context.Background(), "sel-3"), ShouldBeTrue)
				So(d.SeenAndRecord(context.Background(), "sel-4"), ShouldBeTrue)
			})
		})

		Convey("When an unrecorded slot is reused", func() {
			d.Unrecord(context.Background(), "sel-2")
			So(d.Size(), ShouldEqual, 2)

			So(d.SeenAndRecord(context.Background(), "sel-4"), ShouldBeFalse)

			Convey("Then the ring should stay consistent", func() {
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(context.Background(), "sel-3"), ShouldBeTrue)
				So(d.SeenAndRecord(context.Background(), "sel-4"), ShouldBeTrue)
			})
		})
	})

	Convey("Given a deduper bounded to one id", t, func() {
		d := dedupe.NewRingDeduper(dedupe.WithMaxSize(1))

		So(d.SeenAndRecord(context.Background(), "sel-1"), ShouldBeFalse)
		So(d.SeenAndRecord(context.Background(), "sel-2"), ShouldBeFalse)

		Convey("Then only the newest id should survive", func() {
			So(d.Size(), ShouldEqual, 1)
			So(d.SeenAndRecord(context.Background(), "sel-2"), ShouldBeTrue)
			So(d.SeenAndRecord(context.Background(), "sel-1"), ShouldBeFalse)
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		d := dedupe.NewRingDeduper(dedupe.WithMaxSize(0))

		const numEvents = 1000
		for i := 0; i < numEvents; i++ {
			So(d.SeenAndRecord(context.Background(), fmt.Sprintf("sel-%d", i)), ShouldBeFalse)
		}

		Convey("Then nothing should ever age out", func() {
			So(d.Size(), ShouldEqual, int64(numEvents))
			for i := 0; i < numEvents; i++ {
				So(d.SeenAndRecord(context.Background(), fmt.Sprintf("sel-%d", i)), ShouldBeTrue)
			}
		})
	})
}

func TestDedupeConcurrency(t *testing.T) {
	Convey("Given concurrent producers", t, func() {
		d := dedupe.NewRingDeduper(dedupe.WithMaxSize(10000))
		const numGoroutines = 10
		const eventsPerGoroutine = 100

		Convey("When goroutines record disjoint ids", func() {
			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(worker int) {
					defer wg.Done()
					for j := 0; j < eventsPerGoroutine; j++ {
						d.SeenAndRecord(context.Background(), fmt.Sprintf("sel-%d-%d", worker, j))
					}
				}(i)
			}
			wg.Wait()

			Convey("Then every id should be recorded exactly once", func() {
				So(d.Size(), ShouldEqual, int64(numGoroutines*eventsPerGoroutine))
			})
		})

		Convey("When goroutines unrecord what they recorded", func() {
			for i := 0; i < numGoroutines*eventsPerGoroutine; i++ {
				d.SeenAndRecord(context.Background(), fmt.Sprintf("sel-%d", i))
			}

			var wg sync.WaitGroup
			for i := 0; i < numGoroutines; i++ {
				wg.Add(1)
				go func(worker int) {
					defer wg.Done()
					for j := 0; j < eventsPerGoroutine; j++ {
						d.Unrecord(context.Background(), fmt.Sprintf("sel-%d", worker*eventsPerGoroutine+j))
					}
				}(i)
			}
			wg.Wait()

			So(d.Size(), ShouldEqual, 0)
		})
	})
}

func TestDedupeEdgeCases(t *testing.T) {
	Convey("Given awkward ids", t, func() {
		Convey("When the id is the empty string", func() {
			d := dedupe.NewRingDeduper(dedupe.WithMaxSize(2))

			So(d.SeenAndRecord(context.Background(), ""), ShouldBeFalse)
			So(d.SeenAndRecord(context.Background(), ""), ShouldBeTrue)
			So(d.Size(), ShouldEqual, 1)

			Convey("Then the empty id should age out like any other", func() {
				So(d.SeenAndRecord(context.Background(), "sel-1"), ShouldBeFalse)
				So(d.SeenAndRecord(context.Background(), "sel-2"), ShouldBeFalse)
				So(d.Size(), ShouldEqual, 2)
				So(d.SeenAndRecord(context.Background(), ""), ShouldBeFalse)
			})
		})

		Convey("When the context is nil", func() {
			d := dedupe.NewRingDeduper()

			So(func() { d.SeenAndRecord(nil, "sel-1") }, ShouldNotPanic)
			So(func() { d.Unrecord(nil, "sel-1") }, ShouldNotPanic)
		})
	})
}
