package dissim

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorgonia.org/tensor"
)

// Algorithm names a registered dissimilarity statistic.
type Algorithm string

const (
	AlgorithmSEuclidean        Algorithm = "seuclidean"
	AlgorithmNearestNeighbor   Algorithm = "nearest_neighbor"
	AlgorithmZechAslan         Algorithm = "zech_aslan"
	AlgorithmKolmogorovSmirnov Algorithm = "kolmogorov_smirnov"
	AlgorithmFriedmanRafsky    Algorithm = "friedman_rafsky"
	AlgorithmKLDiv             Algorithm = "kldiv"
)

// metricFunc is the shared shape of every registered dissimilarity.
type metricFunc func(x, y [][]float64) (float64, error)

// algorithms is the closed registry of dissimilarity names. Each entry binds
// a Config to the concrete statistic, so the per-algorithm knobs (K, MST)
// are resolved once at dispatch time rather than per grid position.
var algorithms = map[Algorithm]func(Config) metricFunc{
	AlgorithmSEuclidean:        func(Config) metricFunc { return SEuclidean },
	AlgorithmNearestNeighbor:   func(Config) metricFunc { return NearestNeighbor },
	AlgorithmZechAslan:         func(Config) metricFunc { return ZechAslan },
	AlgorithmKolmogorovSmirnov: func(Config) metricFunc { return KolmogorovSmirnov },
	AlgorithmFriedmanRafsky: func(cfg Config) metricFunc {
		return func(x, y [][]float64) (float64, error) {
			return FriedmanRafskyMST(x, y, cfg.MST)
		}
	},
	AlgorithmKLDiv: func(cfg Config) metricFunc {
		return func(x, y [][]float64) (float64, error) {
			return KLDiv(x, y, cfg.K)
		}
	},
}

// Algorithms lists every registered dissimilarity name, sorted.
func Algorithms() []Algorithm {
	out := make([]Algorithm, 0, len(algorithms))
	for a := range algorithms {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// LookupAlgorithm resolves a name (e.g. from a CLI flag or a request field)
// into its Algorithm constant. Unregistered names fail with
// *UnknownAlgorithmError.
func LookupAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(name)
	if _, ok := algorithms[a]; !ok {
		return "", &UnknownAlgorithmError{Name: name}
	}
	return a, nil
}

// Config controls a gridded dissimilarity evaluation.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// Algorithm selects the dissimilarity applied at every grid position.
	// One of the Algorithm constants; anything else fails with
	// *UnknownAlgorithmError. Default: "seuclidean".
	Algorithm Algorithm

	// K is the neighbor order used by the kldiv algorithm; the other
	// algorithms ignore it. Must be >= 1. Default: 1.
	K int

	// MST selects the spanning-tree engine used by the friedman_rafsky
	// algorithm; the other algorithms ignore it. Default: "auto".
	MST MSTAlgorithm

	// MinValidRows is the smallest number of fully-valid candidate rows a
	// grid position needs before the statistic runs. Positions below it get
	// NaN. Must be >= 1. Default: 5.
	MinValidRows int

	// Workers bounds the number of grid positions evaluated concurrently.
	// 0 means runtime.NumCPU().
	Workers int

	// Logger receives per-position skip decisions (Debug) and a completion
	// summary (Info). Default: zap.NewNop().
	Logger *zap.Logger
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Algorithm:    AlgorithmSEuclidean,
		K:            1,
		MST:          MSTAuto,
		MinValidRows: minViableRows,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmSEuclidean
	}
	if cfg.K == 0 {
		cfg.K = 1
	}
	if cfg.MST == "" {
		cfg.MST = MSTAuto
	}
	if cfg.MinValidRows == 0 {
		cfg.MinValidRows = minViableRows
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if _, ok := algorithms[cfg.Algorithm]; !ok {
		return &UnknownAlgorithmError{Name: string(cfg.Algorithm)}
	}
	if cfg.K < 1 {
		return fmt.Errorf("dissim: K must be >= 1, got %d", cfg.K)
	}
	switch cfg.MST {
	case MSTAuto, MSTBrute, MSTBoruvkaKDTree, MSTBoruvkaBallTree:
		// valid
	default:
		return fmt.Errorf("dissim: invalid MST algorithm %q", cfg.MST)
	}
	if cfg.MinValidRows < 1 {
		return fmt.Errorf("dissim: MinValidRows must be >= 1, got %d", cfg.MinValidRows)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("dissim: Workers must be >= 1, got %d", cfg.Workers)
	}
	return nil
}

// Dissimilarity evaluates one dissimilarity statistic between a reference
// sample and the candidate observations at every position of a gridded
// source. The result tensor has the source's grid shape; positions with too
// few valid candidate rows hold NaN.
//
// Positions are independent and are evaluated concurrently, bounded by
// cfg.Workers. The first structural error (a shape or dimensionality
// problem, which indicates misconfiguration rather than missing data)
// cancels the remaining work and is returned.
func Dissimilarity(ctx context.Context, reference [][]float64, src GridSource, cfg Config) (*tensor.Dense, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	ref := newSample(reference)
	if ref.d != src.NumVars() {
		return nil, &ShapeMismatchError{XFeatures: ref.d, YFeatures: src.NumVars()}
	}
	if ref.d >= MaxFeatures {
		return nil, &DimensionalityError{Features: ref.d}
	}

	fn := algorithms[cfg.Algorithm](cfg)

	shape := src.GridShape()
	total := 1
	for _, ex := range shape {
		total *= ex
	}
	out := make([]float64, total)

	start := time.Now()
	var skipped atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for flat := 0; flat < total; flat++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			pos := unravel(flat, shape)
			candidate := compressRows(src.SampleAt(pos))
			if len(candidate) < cfg.MinValidRows {
				cfg.Logger.Debug("dissim: skipping grid position",
					zap.Ints("position", pos),
					zap.Int("valid_rows", len(candidate)),
					zap.Int("min_valid_rows", cfg.MinValidRows))
				out[flat] = math.NaN()
				skipped.Add(1)
				return nil
			}

			v, err := fn(reference, candidate)
			if err != nil {
				return fmt.Errorf("dissim: position %v: %w", pos, err)
			}
			out[flat] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cfg.Logger.Info("dissim: grid evaluation complete",
		zap.String("algorithm", string(cfg.Algorithm)),
		zap.Int("positions", total),
		zap.Int64("skipped", skipped.Load()),
		zap.Duration("elapsed", time.Since(start)))

	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(out)), nil
}
