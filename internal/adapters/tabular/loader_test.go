package tabular_test

import (
	"strings"
	"testing"

	"github.com/maintiq/rmi/internal/adapters/tabular"
	"github.com/maintiq/rmi/internal/domain/cmms"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoader_Read(t *testing.T) {
	Convey("Given a vendor export with aliased headers", t, func() {
		l := tabular.New()
		csv := strings.Join([]string{
			"WO Number,WO Type,Priority,Resolution",
			"1001,Emergency,1,Replaced coupling after failure",
			"1002,Preventive,3,Route completed",
		}, "\n")

		table, err := l.Read(strings.NewReader(csv))
		So(err, ShouldBeNil)

		Convey("Then headers resolve to canonical names", func() {
			So(table.Has(cmms.ColWorkOrderType), ShouldBeTrue)
			So(table.Has(cmms.ColPriority), ShouldBeTrue)
			So(table.Has(cmms.ColCompletionNotes), ShouldBeTrue)
			So(table.Has("work_order_number"), ShouldBeTrue)
		})

		Convey("Then cells land under the canonical names", func() {
			So(table.Len(), ShouldEqual, 2)
			So(table.Rows[0][cmms.ColWorkOrderType], ShouldEqual, "Emergency")
			So(table.Rows[1][cmms.ColCompletionNotes], ShouldEqual, "Route completed")
		})
	})

	Convey("Given an export already using canonical headers", t, func() {
		l := tabular.New()
		table, err := l.Read(strings.NewReader("work_order_type,priority\nCorrective,2\n"))
		So(err, ShouldBeNil)
		So(table.Has(cmms.ColWorkOrderType), ShouldBeTrue)
	})

	Convey("Given an unknown header", t, func() {
		l := tabular.New()
		table, err := l.Read(strings.NewReader("Asset Tag\nP-101\n"))
		So(err, ShouldBeNil)

		Convey("Then it falls back to snake_case", func() {
			So(table.Has("asset_tag"), ShouldBeTrue)
		})
	})

	Convey("Given a PM export with the PM alias map", t, func() {
		l := tabular.New(tabular.WithAliases(tabular.DefaultPMAliases()))
		csv := "PM Number,Scheduled Date,Actual Date\nPM-7,2026-03-01,2026-03-04\n"

		table, err := l.Read(strings.NewReader(csv))
		So(err, ShouldBeNil)
		So(table.Has(cmms.ColDueDate), ShouldBeTrue)
		So(table.Has(cmms.ColCompletedDate), ShouldBeTrue)
		So(table.Rows[0][cmms.ColDueDate], ShouldEqual, "2026-03-01")
	})

	Convey("Given an empty reader", t, func() {
		l := tabular.New()
		_, err := l.Read(strings.NewReader(""))
		So(err, ShouldNotBeNil)
	})
}

func TestSample(t *testing.T) {
	Convey("Given a table of twenty rows", t, func() {
		table := &cmms.Table{Columns: []string{"n"}}
		for i := 0; i < 20; i++ {
			table.Rows = append(table.Rows, cmms.Row{"n": string(rune('a' + i))})
		}

		Convey("Then sampling is reproducible for a fixed seed", func() {
			a := tabular.Sample(table, 5, 42)
			b := tabular.Sample(table, 5, 42)
			So(a, ShouldHaveLength, 5)
			So(a, ShouldResemble, b)
		})

		Convey("Then asking for more rows than exist returns them all", func() {
			So(tabular.Sample(table, 100, 1), ShouldHaveLength, 20)
		})

		Convey("Then degenerate requests return nothing", func() {
			So(tabular.Sample(table, 0, 1), ShouldBeNil)
			So(tabular.Sample(nil, 5, 1), ShouldBeNil)
		})
	})
}
