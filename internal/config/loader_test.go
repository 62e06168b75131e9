package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/kinema/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no file or environment overrides", t, func() {
		os.Unsetenv("KINEMA_CONFIG")

		Convey("When loading", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
				So(cfg.SubsetSize, ShouldEqual, 4)
				So(cfg.TotalCharge, ShouldEqual, 0)
				So(cfg.HistBins, ShouldEqual, 120)
				So(cfg.HistMax, ShouldEqual, 300.0)
				So(cfg.KafkaEnabled, ShouldBeFalse)
			})
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	Convey("Given environment overrides", t, func() {
		t.Setenv("KINEMA_ADDR", ":7070")
		t.Setenv("KINEMA_SUBSET_SIZE", "2")
		t.Setenv("KINEMA_HIST_BINS", "60")

		Convey("When loading", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then the env values win", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.SubsetSize, ShouldEqual, 2)
				So(cfg.HistBins, ShouldEqual, 60)
			})
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	Convey("Given a YAML config file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "kinema.yaml")
		yaml := "addr: \":6060\"\nworker_count: 2\nhist_min: 50\nhist_max: 150\n"
		So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
		t.Setenv("KINEMA_CONFIG", path)

		Convey("When loading", func() {
			cfg, err := config.Load(context.Background())

			Convey("Then file values override defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":6060")
				So(cfg.WorkerCount, ShouldEqual, 2)
				So(cfg.HistMin, ShouldEqual, 50.0)
				So(cfg.HistMax, ShouldEqual, 150.0)
			})
		})

		Convey("And environment still beats the file", func() {
			t.Setenv("KINEMA_ADDR", ":5050")
			cfg, err := config.Load(context.Background())
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":5050")
		})
	})
}

func TestLoadValidation(t *testing.T) {
	Convey("Given invalid settings", t, func() {
		Convey("When subset size is below two", func() {
			t.Setenv("KINEMA_SUBSET_SIZE", "1")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When the histogram grid is inverted", func() {
			t.Setenv("KINEMA_HIST_MIN", "300")
			t.Setenv("KINEMA_HIST_MAX", "100")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When Kafka is enabled without a topic", func() {
			t.Setenv("KINEMA_KAFKA_ENABLED", "true")
			t.Setenv("KINEMA_KAFKA_TOPIC", " ")
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("When the config file does not exist", func() {
			t.Setenv("KINEMA_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := config.Load(context.Background())
			So(err, ShouldWrap, config.ErrLoadConfig)
		})
	})
}
