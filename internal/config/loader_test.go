package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shotclassifier/internal/config"

	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars(t)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DataPath, convey.ShouldEqual, "data/data.csv")
				convey.So(cfg.Folds, convey.ShouldEqual, 10)
				convey.So(cfg.Seed, convey.ShouldEqual, 42)
				convey.So(cfg.ValidationSize, convey.ShouldEqual, 0.2)
				convey.So(cfg.ForestTrees, convey.ShouldEqual, 20)
				convey.So(cfg.Models, convey.ShouldResemble, []string{"logistic", "knn", "tree", "forest"})
				convey.So(cfg.TrainOnSeasonRange, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			t.Setenv("SHOTS_DATA_PATH", "/tmp/shots.parquet")
			t.Setenv("SHOTS_FOLDS", "5")
			t.Setenv("SHOTS_MODELS", "tree")
			t.Setenv("SHOTS_TRAIN_ON_SEASON_RANGE", "true")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DataPath, convey.ShouldEqual, "/tmp/shots.parquet")
				convey.So(cfg.Folds, convey.ShouldEqual, 5)
				convey.So(cfg.Models, convey.ShouldResemble, []string{"tree"})
				convey.So(cfg.TrainOnSeasonRange, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the model list comes from the environment", func() {
			t.Setenv("SHOTS_MODELS", "tree, knn,")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it is split on commas", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Models, convey.ShouldResemble, []string{"tree", "knn"})
			})
		})

		convey.Convey("When the environment names an unknown model", func() {
			t.Setenv("SHOTS_MODELS", "tree,svm")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, `"svm"`)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := writeTempFile(t, "config.yaml", `
data_path: "shots.csv"
delimiter: ";"
seed: 7
models: [logistic, forest]
`)
			t.Setenv("SHOTS_CONFIG", path)
			t.Setenv("SHOTS_SEED", "11")

			cfg, err := config.Load(ctx)

			convey.Convey("Then env should win over the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DataPath, convey.ShouldEqual, "shots.csv")
				convey.So(cfg.DelimiterRune(), convey.ShouldEqual, ';')
				convey.So(cfg.Seed, convey.ShouldEqual, 11)
				convey.So(cfg.Models, convey.ShouldResemble, []string{"logistic", "forest"})
			})
		})

		convey.Convey("When a dotenv file is present", func() {
			path := writeTempFile(t, "test.env", "SHOTS_NEIGHBORS=9\n")
			t.Setenv("SHOTS_ENV_FILE", path)
			t.Cleanup(func() { _ = os.Unsetenv("SHOTS_NEIGHBORS") })

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Neighbors, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When a setting is invalid", func() {
			t.Setenv("SHOTS_FOLDS", "1")

			_, err := config.Load(ctx)

			convey.Convey("Then it should return ErrInvalidConfig", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv("SHOTS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then it should return ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestConfigValidate(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("It validates", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("A multi-character delimiter is rejected", func() {
			cfg.Delimiter = ",,"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("An unknown model name is rejected", func() {
			cfg.Models = []string{"tree,knn"}
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("An unknown category policy is rejected", func() {
			cfg.UnknownCategory = "ignore"
			convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestSplitList(t *testing.T) {
	convey.Convey("SplitList trims items and drops blanks", t, func() {
		convey.So(config.SplitList(" tree ,knn,,"), convey.ShouldResemble, []string{"tree", "knn"})
		convey.So(config.SplitList(""), convey.ShouldBeEmpty)
	})
}

func clearConfigEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SHOTS_CONFIG", "SHOTS_DATA_PATH", "SHOTS_FOLDS", "SHOTS_MODELS", "SHOTS_SEED",
		"SHOTS_TRAIN_ON_SEASON_RANGE", "SHOTS_NEIGHBORS",
	} {
		_ = os.Unsetenv(key)
	}
	t.Setenv("SHOTS_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
