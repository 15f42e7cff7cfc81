package dissim

import "sync"

// knnQueryWorkers is the fan-out used for the KNN query sweeps inside the
// nearest-neighbor estimators. Queries are cheap and the dispatcher already
// parallelizes across grid positions, so a small fixed fan-out is enough.
const knnQueryWorkers = 2

// queryKNNParallel runs tree.QueryKNN for the query rows split across
// numWorkers goroutines. Each worker handles a contiguous slab of rows and
// writes into disjoint slices, so no synchronization is needed beyond the
// final join. Results are identical to a single tree.QueryKNN call; trees
// are read-only after construction.
//
// Falls back to a direct call if numWorkers <= 1 or the slabs would be empty.
func queryKNNParallel(tree SpatialTree, queryData []float64, queryRows, k, numWorkers int) ([][]int, [][]float64) {
	if numWorkers <= 1 || queryRows <= 1 {
		return tree.QueryKNN(queryData, queryRows, k)
	}

	dims := tree.NumFeatures()
	indices := make([][]int, queryRows)
	distances := make([][]float64, queryRows)

	var wg sync.WaitGroup
	rowsPerWorker := (queryRows + numWorkers - 1) / numWorkers

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := startRow + rowsPerWorker
		if endRow > queryRows {
			endRow = queryRows
		}
		if startRow >= queryRows {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			idx, dist := tree.QueryKNN(queryData[start*dims:end*dims], end-start, k)
			for i := start; i < end; i++ {
				indices[i] = idx[i-start]
				distances[i] = dist[i-start]
			}
		}(startRow, endRow)
	}

	wg.Wait()
	return indices, distances
}
