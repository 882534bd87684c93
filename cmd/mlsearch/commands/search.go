package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/edwardbickerton/handson-ml3/core/model"
	"github.com/edwardbickerton/handson-ml3/dataset"
	"github.com/edwardbickerton/handson-ml3/linear"
	"github.com/edwardbickerton/handson-ml3/linear_model"
	"github.com/edwardbickerton/handson-ml3/modelselect"
	"github.com/edwardbickerton/handson-ml3/neighbors"
	mlerrors "github.com/edwardbickerton/handson-ml3/pkg/errors"
)

func newSearchCommand() *cobra.Command {
	var (
		datasetPath    string
		estimatorName  string
		strategy       string
		metric         string
		folds          int
		stratify       bool
		budget         int
		seed           uint64
		workers        int
		timeoutSeconds int
		testRatio      float64
		modelOut       string
		cacheDir       string
		plotParam      string
		plotOut        string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a grid or randomized hyperparameter search",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := resolveString(datasetPath, appConfig.Dataset)
			if path == "" {
				return errors.New("dataset path is required (--dataset or config)")
			}
			estimatorResolved := resolveString(estimatorName, appConfig.Estimator)
			if estimatorResolved == "" {
				estimatorResolved = "knn"
			}
			strategyResolved := resolveString(strategy, appConfig.Strategy)
			if strategyResolved == "" {
				strategyResolved = "grid"
			}
			metricResolved := resolveString(metric, appConfig.Metric)
			if metricResolved == "" {
				metricResolved = defaultMetric(estimatorResolved)
			}
			foldCount := resolveInt(folds, appConfig.Folds, 5)
			budgetResolved := resolveInt(budget, appConfig.Budget, 20)
			seedResolved := seed
			if seedResolved == 0 {
				seedResolved = appConfig.Seed
			}
			workerCount := resolveInt(workers, appConfig.Workers, 0)
			timeoutResolved := resolveInt(timeoutSeconds, appConfig.TimeoutSeconds, 0)
			ratioResolved := testRatio
			if ratioResolved == 0 {
				ratioResolved = appConfig.TestRatio
			}
			stratifyResolved := stratify || appConfig.Stratify
			modelOutResolved := resolveString(modelOut, appConfig.ModelOut)
			cacheDirResolved := resolveString(cacheDir, appConfig.CacheDir)
			plotParamResolved := resolveString(plotParam, appConfig.PlotParam)
			plotOutResolved := resolveString(plotOut, appConfig.PlotOut)

			ds, err := dataset.ReadCSVFile(path)
			if err != nil {
				return err
			}

			train := ds
			var test *dataset.Dataset
			if ratioResolved > 0 {
				train, test, err = ds.Split(ratioResolved, seedResolved, stratifyResolved)
				if err != nil {
					return err
				}
			}

			template, err := buildEstimator(estimatorResolved)
			if err != nil {
				return err
			}
			space, err := buildSpace(estimatorResolved, strategyResolved, appConfig.Params)
			if err != nil {
				return err
			}

			var splitter modelselect.Splitter
			if stratifyResolved {
				splitter = modelselect.NewStratifiedKFold(foldCount)
			} else {
				splitter = modelselect.NewKFold(foldCount)
			}

			opts := []modelselect.SearchOption{
				modelselect.WithSplitter(splitter),
				modelselect.WithMetric(metricResolved),
				modelselect.WithWorkers(workerCount),
			}
			if timeoutResolved > 0 {
				opts = append(opts, modelselect.WithCandidateTimeout(time.Duration(timeoutResolved)*time.Second))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var result *modelselect.SearchResult
			switch strategyResolved {
			case "grid":
				result, err = modelselect.NewGridSearch(template, space, opts...).Run(ctx, train.X(), train.Y())
			case "random":
				result, err = modelselect.NewRandomizedSearch(template, space, budgetResolved, seedResolved, opts...).
					Run(ctx, train.X(), train.Y())
			default:
				return fmt.Errorf("unknown strategy: %s (want grid or random)", strategyResolved)
			}
			if err != nil {
				var aborted *mlerrors.SearchAbortedError
				if !mlerrors.As(err, &aborted) {
					return err
				}
				// Interrupted: report what completed, then surface the abort.
				fmt.Fprintln(os.Stderr, err)
			}

			if reportErr := result.Report(os.Stdout); reportErr != nil {
				return reportErr
			}

			if test != nil && result.BestEstimator != nil {
				if scorer, ok := result.BestEstimator.(model.Scorer); ok {
					score, scoreErr := scorer.Score(test.X(), test.Y())
					if scoreErr != nil {
						return scoreErr
					}
					fmt.Printf("held-out test score: %.4f\n", score)
				}
			}

			if plotParamResolved != "" && plotOutResolved != "" {
				if plotErr := modelselect.PlotValidationCurve(result, plotParamResolved, plotOutResolved); plotErr != nil {
					return plotErr
				}
				fmt.Printf("validation curve written to %s\n", plotOutResolved)
			}

			if result.BestEstimator != nil {
				if cacheDirResolved != "" {
					cache, cacheErr := model.NewModelCache(cacheDirResolved)
					if cacheErr != nil {
						return cacheErr
					}
					key := model.CacheKey(train.X(), train.Y(), result.BestParams)
					if saveErr := cache.Save(result.BestEstimator, key); saveErr != nil {
						return saveErr
					}
					fmt.Printf("best model cached under key %s\n", key)
				}
				if modelOutResolved != "" {
					if saveErr := model.SaveModel(result.BestEstimator, modelOutResolved); saveErr != nil {
						return saveErr
					}
					fmt.Printf("best model saved to %s\n", modelOutResolved)
				}
			}

			return err
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to a CSV dataset (last column is the label)")
	cmd.Flags().StringVar(&estimatorName, "estimator", "", "estimator to tune (knn, sgd, linreg)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "search strategy (grid, random)")
	cmd.Flags().StringVar(&metric, "metric", "", "scoring metric (accuracy, f1_macro, r2, ...)")
	cmd.Flags().IntVar(&folds, "folds", 0, "cross-validation folds")
	cmd.Flags().BoolVar(&stratify, "stratify", false, "stratify folds and the train/test split by class")
	cmd.Flags().IntVar(&budget, "budget", 0, "candidate budget for random strategy")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for sampling and splitting")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel candidate evaluations (0 = one per CPU)")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "per-candidate timeout in seconds (0 = none)")
	cmd.Flags().Float64Var(&testRatio, "test-ratio", 0, "fraction held out for a final test score")
	cmd.Flags().StringVar(&modelOut, "model-out", "", "path to save the refit best model (gob)")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "model cache directory")
	cmd.Flags().StringVar(&plotParam, "plot-param", "", "numeric parameter for the validation curve")
	cmd.Flags().StringVar(&plotOut, "plot-out", "", "PNG path for the validation curve")

	return cmd
}

func defaultMetric(estimator string) string {
	if estimator == "linreg" {
		return "r2"
	}
	return "accuracy"
}

func buildEstimator(name string) (model.Estimator, error) {
	switch name {
	case "knn":
		return neighbors.NewKNNClassifier(), nil
	case "sgd":
		return linear_model.NewSGDClassifier(), nil
	case "linreg":
		return linear.NewLinearRegression(), nil
	default:
		return nil, fmt.Errorf("unknown estimator: %s (want knn, sgd, or linreg)", name)
	}
}

// buildSpace returns the parameter space to search: the values configured
// under params in the config file when present, otherwise a sensible default
// per estimator and strategy.
func buildSpace(estimator, strategy string, configured map[string][]interface{}) (modelselect.Space, error) {
	if len(configured) > 0 {
		space := modelselect.Space{}
		for name, values := range configured {
			if len(values) == 0 {
				return nil, fmt.Errorf("parameter %q has no values", name)
			}
			space[name] = modelselect.Values(values)
		}
		return space, nil
	}

	switch estimator {
	case "knn":
		if strategy == "random" {
			return modelselect.Space{
				"n_neighbors": modelselect.IntRange{Low: 1, High: 25},
				"weights":     modelselect.Values{"uniform", "distance"},
			}, nil
		}
		return modelselect.Space{
			"n_neighbors": modelselect.Values{1, 3, 5, 7, 9, 15},
			"weights":     modelselect.Values{"uniform", "distance"},
		}, nil
	case "sgd":
		if strategy == "random" {
			return modelselect.Space{
				"alpha":         modelselect.LogUniform{Low: 1e-5, High: 1e-1},
				"eta0":          modelselect.Uniform{Low: 0.01, High: 0.5},
				"learning_rate": modelselect.Values{"constant", "exponential", "ramp"},
			}, nil
		}
		return modelselect.Space{
			"alpha":         modelselect.Values{1e-4, 1e-3, 1e-2},
			"eta0":          modelselect.Values{0.05, 0.1, 0.2},
			"learning_rate": modelselect.Values{"constant", "exponential", "ramp"},
		}, nil
	case "linreg":
		return modelselect.Space{
			"fit_intercept": modelselect.Values{true, false},
		}, nil
	default:
		return nil, fmt.Errorf("unknown estimator: %s", estimator)
	}
}

func resolveString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func resolveInt(value, fallback, defaultValue int) int {
	if value > 0 {
		return value
	}
	if fallback > 0 {
		return fallback
	}
	return defaultValue
}
