package main

import (
	"context"
	"os"
	"testing"

	app "github.com/maintiq/rmi/internal/app"
	"github.com/maintiq/rmi/internal/config"
	"github.com/maintiq/rmi/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainWiring(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("RMI_ADDR", ":8080")
			_ = os.Setenv("RMI_QUEUE_SIZE", "1000")
			_ = os.Setenv("RMI_WORKER_COUNT", "4")
			defer func() {
				_ = os.Unsetenv("RMI_ADDR")
				_ = os.Unsetenv("RMI_QUEUE_SIZE")
				_ = os.Unsetenv("RMI_WORKER_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load()
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When selecting the narrative backend", func() {
			log := logger.Get()

			convey.Convey("Then no endpoint yields the keyword scorer", func() {
				cfg := config.New()
				scorer := buildTextScorer(context.Background(), cfg, log)
				convey.So(scorer, convey.ShouldNotBeNil)
			})

			convey.Convey("And an endpoint yields the HTTP client", func() {
				cfg := config.New()
				cfg.NarrativeURL = "http://localhost:9000/evaluate"
				scorer := buildTextScorer(context.Background(), cfg, log)
				convey.So(scorer, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And a configured service should start and stop", func() {
				svc := app.New(
					app.WithWorkerCount(2),
					app.WithQueueSize(100),
				)
				convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
				svc.Stop()
			})
		})
	})
}
