package cmms_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/maintiq/rmi/internal/domain/cmms"
	. "github.com/smartystreets/goconvey/convey"
)

func workOrderTable(reactive, preventive int) *cmms.Table {
	t := &cmms.Table{Columns: []string{cmms.ColWorkOrderType}}
	for i := 0; i < reactive; i++ {
		t.Rows = append(t.Rows, cmms.Row{cmms.ColWorkOrderType: "Emergency"})
	}
	for i := 0; i < preventive; i++ {
		t.Rows = append(t.Rows, cmms.Row{cmms.ColWorkOrderType: "Preventive"})
	}
	return t
}

func TestReactiveRatio(t *testing.T) {
	Convey("Given 70 reactive work orders out of 100", t, func() {
		got, err := cmms.ReactiveRatio(workOrderTable(70, 30))
		So(err, ShouldBeNil)

		Convey("Then the site is in a reactive spiral", func() {
			So(got.TotalWorkOrders, ShouldEqual, 100)
			So(got.ReactiveCount, ShouldEqual, 70)
			So(got.PreventiveCount, ShouldEqual, 30)
			So(got.ReactivePercentage, ShouldEqual, 70.0)
			So(got.Score, ShouldEqual, 1)
			So(got.Severity, ShouldEqual, "CRITICAL - REACTIVE SPIRAL")
			So(got.ReactiveSpiral, ShouldBeTrue)
		})
	})

	Convey("Given a mostly preventive history", t, func() {
		got, err := cmms.ReactiveRatio(workOrderTable(10, 90))
		So(err, ShouldBeNil)
		So(got.Score, ShouldEqual, 5)
		So(got.Severity, ShouldEqual, "EXCELLENT - Proactive Maintenance")
		So(got.ReactiveSpiral, ShouldBeFalse)
	})

	Convey("Given exactly 60% reactive", t, func() {
		got, err := cmms.ReactiveRatio(workOrderTable(60, 40))
		So(err, ShouldBeNil)

		Convey("Then the strict boundary keeps it one band down", func() {
			So(got.Score, ShouldEqual, 2)
		})
	})

	Convey("Given the reactive vocabulary in longer type names", t, func() {
		tbl := &cmms.Table{
			Columns: []string{cmms.ColWorkOrderType},
			Rows: []cmms.Row{
				{cmms.ColWorkOrderType: "Corrective Maintenance"},
				{cmms.ColWorkOrderType: "breakdown repair"},
				{cmms.ColWorkOrderType: "PM Route"},
			},
		}
		got, err := cmms.ReactiveRatio(tbl)
		So(err, ShouldBeNil)
		So(got.ReactiveCount, ShouldEqual, 2)
	})

	Convey("Given no type column but a priority column", t, func() {
		tbl := &cmms.Table{
			Columns: []string{cmms.ColPriority},
			Rows: []cmms.Row{
				{cmms.ColPriority: "1"},
				{cmms.ColPriority: "Urgent"},
				{cmms.ColPriority: "3"},
				{cmms.ColPriority: "Routine"},
			},
		}
		got, err := cmms.ReactiveRatio(tbl)
		So(err, ShouldBeNil)
		So(got.ReactiveCount, ShouldEqual, 2)
	})

	Convey("Given neither usable column", t, func() {
		tbl := &cmms.Table{Columns: []string{"asset_id"}, Rows: []cmms.Row{{"asset_id": "P-101"}}}
		_, err := cmms.ReactiveRatio(tbl)
		So(errors.Is(err, cmms.ErrInvalidInput), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, cmms.ColWorkOrderType)
	})

	Convey("Given a nil or empty table", t, func() {
		_, err := cmms.ReactiveRatio(nil)
		So(errors.Is(err, cmms.ErrTypeMismatch), ShouldBeTrue)

		_, err = cmms.ReactiveRatio(&cmms.Table{})
		So(errors.Is(err, cmms.ErrTypeMismatch), ShouldBeTrue)
	})

	Convey("Given an empty work order list", t, func() {
		got, err := cmms.ReactiveRatio(&cmms.Table{Columns: []string{cmms.ColWorkOrderType}})
		So(err, ShouldBeNil)
		So(got.ReactivePercentage, ShouldEqual, 0.0)
		So(got.Score, ShouldEqual, 5)
	})
}

func pmTable(onTime, late int) *cmms.Table {
	t := &cmms.Table{Columns: []string{cmms.ColCompletedDate, cmms.ColDueDate}}
	for i := 0; i < onTime; i++ {
		t.Rows = append(t.Rows, cmms.Row{
			cmms.ColDueDate:       "2026-03-01",
			cmms.ColCompletedDate: "2026-03-05", // inside the 7-day grace
		})
	}
	for i := 0; i < late; i++ {
		t.Rows = append(t.Rows, cmms.Row{
			cmms.ColDueDate:       "2026-03-01",
			cmms.ColCompletedDate: "2026-03-21", // 20 days late
		})
	}
	return t
}

func TestPMCompliance(t *testing.T) {
	Convey("Given 96 of 100 PMs completed within grace", t, func() {
		got, err := cmms.PMCompliance(pmTable(96, 4))
		So(err, ShouldBeNil)

		Convey("Then compliance is excellent", func() {
			So(got.TotalPMs, ShouldEqual, 100)
			So(got.OnTimeCount, ShouldEqual, 96)
			So(got.CompliancePercentage, ShouldEqual, 96.0)
			So(got.Score, ShouldEqual, 5)
			So(got.Severity, ShouldEqual, "EXCELLENT")
		})

		Convey("Then average days late covers only the late rows", func() {
			So(got.AverageDaysLate, ShouldEqual, 20.0)
		})
	})

	Convey("Given the inclusive band boundaries", t, func() {
		cases := []struct {
			onTime, late, score int
		}{
			{95, 5, 5},
			{94, 6, 4},
			{85, 15, 4},
			{70, 30, 3},
			{50, 50, 2},
			{49, 51, 1},
		}
		for _, c := range cases {
			got, err := cmms.PMCompliance(pmTable(c.onTime, c.late))
			So(err, ShouldBeNil)
			SoMsg(fmt.Sprintf("%d/%d on time", c.onTime, c.onTime+c.late), got.Score, ShouldEqual, c.score)
		}
	})

	Convey("Given a tighter grace window", t, func() {
		got, err := cmms.PMCompliance(pmTable(10, 0), cmms.WithGraceDays(2))
		So(err, ShouldBeNil)

		Convey("Then the four-day completions become late", func() {
			So(got.OnTimeCount, ShouldEqual, 0)
			So(got.LateCount, ShouldEqual, 10)
			So(got.GraceDays, ShouldEqual, 2)
		})
	})

	Convey("Given rows with missing dates", t, func() {
		tbl := pmTable(3, 0)
		tbl.Rows = append(tbl.Rows, cmms.Row{cmms.ColDueDate: "2026-03-01", cmms.ColCompletedDate: ""})

		got, err := cmms.PMCompliance(tbl)
		So(err, ShouldBeNil)

		Convey("Then incomplete rows are skipped, not counted late", func() {
			So(got.TotalPMs, ShouldEqual, 3)
		})
	})

	Convey("Given an unparseable date", t, func() {
		tbl := &cmms.Table{
			Columns: []string{cmms.ColCompletedDate, cmms.ColDueDate},
			Rows:    []cmms.Row{{cmms.ColDueDate: "next tuesday", cmms.ColCompletedDate: "2026-03-01"}},
		}
		_, err := cmms.PMCompliance(tbl)
		So(errors.Is(err, cmms.ErrInvalidInput), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, cmms.ColDueDate)
	})

	Convey("Given a missing date column", t, func() {
		tbl := &cmms.Table{Columns: []string{cmms.ColDueDate}}
		_, err := cmms.PMCompliance(tbl)
		So(errors.Is(err, cmms.ErrInvalidInput), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, cmms.ColCompletedDate)
	})
}

func TestDataGraveyard(t *testing.T) {
	notesTable := func(notes ...string) *cmms.Table {
		t := &cmms.Table{Columns: []string{cmms.ColCompletionNotes}}
		for _, n := range notes {
			t.Rows = append(t.Rows, cmms.Row{cmms.ColCompletionNotes: n})
		}
		return t
	}

	Convey("Given a mix of meaningful and generic closures", t, func() {
		got, err := cmms.DataGraveyard(notesTable(
			"Replaced the inboard bearing after vibration trending high",
			"done",
			"Fixed",
			"ok",
			"",
			"short one", // under ten characters
			"Cleared debris from the conveyor belt tracking sensors",
			"Rebuilt pump seal, aligned coupling, verified flow rate",
			"N/A",
			"Greased all drive-side fittings per route sheet",
		))
		So(err, ShouldBeNil)

		Convey("Then the generic and too-short notes are flagged", func() {
			So(got.TotalRecords, ShouldEqual, 10)
			So(got.PoorQualityCount, ShouldEqual, 6)
			So(got.PoorQualityPercentage, ShouldEqual, 60.0)
			So(got.Score, ShouldEqual, 1)
			So(got.Severity, ShouldEqual, "SEVERE DATA GRAVEYARD - Cannot perform RCA")
		})
	})

	Convey("Given uniformly good notes", t, func() {
		got, err := cmms.DataGraveyard(notesTable(
			"Replaced worn v-belt and re-tensioned to spec",
			"Calibrated the level transmitter against the sight glass",
			"Torqued flange bolts to 90 ft-lb after gasket replacement",
		))
		So(err, ShouldBeNil)
		So(got.PoorQualityCount, ShouldEqual, 0)
		So(got.Score, ShouldEqual, 5)
	})

	Convey("Given a missing notes column", t, func() {
		tbl := &cmms.Table{Columns: []string{"wo_id"}, Rows: []cmms.Row{{"wo_id": "1"}}}
		_, err := cmms.DataGraveyard(tbl)
		So(errors.Is(err, cmms.ErrInvalidInput), ShouldBeTrue)
	})
}

func TestWorkTypeDistribution(t *testing.T) {
	Convey("Given work orders of several types", t, func() {
		tbl := &cmms.Table{
			Columns: []string{cmms.ColWorkOrderType},
			Rows: []cmms.Row{
				{cmms.ColWorkOrderType: "Preventive"},
				{cmms.ColWorkOrderType: "Preventive"},
				{cmms.ColWorkOrderType: "Emergency"},
				{cmms.ColWorkOrderType: "Corrective"},
			},
		}

		got, err := cmms.WorkTypeDistribution(tbl)
		So(err, ShouldBeNil)

		Convey("Then shares come back largest first with percentages", func() {
			So(got, ShouldHaveLength, 3)
			So(got[0].Type, ShouldEqual, "Preventive")
			So(got[0].Count, ShouldEqual, 2)
			So(got[0].Percentage, ShouldEqual, 50.0)
		})
	})
}
