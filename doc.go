// Package dissim implements dissimilarity statistics between multivariate
// samples, built around a nearest-neighbor estimator of the Kullback–Leibler
// divergence that works directly from observations, with no density fitting.
//
// The package answers one question in several ways: given a reference sample
// and a candidate sample in the same feature space, how far apart are the
// distributions that produced them? KLDiv estimates the divergence itself;
// SEuclidean, NearestNeighbor, ZechAslan, KolmogorovSmirnov and
// FriedmanRafsky are cheaper or differently-shaped dissimilarities over the
// same inputs.
//
// Basic usage:
//
//	d, err := dissim.KLDiv(reference, candidate, 1)
//	// d estimates D(P‖Q) for reference ~ P, candidate ~ Q
//
// Samples are [][]float64 with one observation per row; a 1-D series may
// also be passed as a single row, or built with dissim.Column. Samples with
// fewer than five observations yield NaN rather than an error, and feature
// counts of ten or more are rejected, since nearest-neighbor density
// estimates stop carrying information in high dimensions.
//
// # Gridded evaluation
//
// Dissimilarity sweeps one statistic over every position of a gridded
// dataset, comparing the reference sample against each position's
// observations. Positions run concurrently, rows with missing values are
// dropped, and positions left with too few rows get NaN:
//
//	cfg := dissim.DefaultConfig()
//	cfg.Algorithm = dissim.AlgorithmKLDiv
//	grid, err := dissim.Dissimilarity(ctx, reference, src, cfg)
//	// grid is a *tensor.Dense with the source's grid shape
package dissim
