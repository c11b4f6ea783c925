package embedding

import "fmt"

// Aggregate combines per-chunk vectors into a single conversation vector
// per strategy. weights must be the same length as vectors and is only
// consulted by AggWeightedMean.
func Aggregate(vectors [][]float64, weights []float64, strategy AggregationStrategy) ([]float64, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cannot aggregate zero vectors")
	}
	dims := len(vectors[0])

	switch strategy {
	case AggMean, "":
		out := make([]float64, dims)
		for _, v := range vectors {
			for i, x := range v {
				out[i] += x
			}
		}
		n := float64(len(vectors))
		for i := range out {
			out[i] /= n
		}
		return out, nil

	case AggWeightedMean:
		if len(weights) != len(vectors) {
			return nil, fmt.Errorf("weighted_mean requires one weight per vector")
		}
		out := make([]float64, dims)
		var totalWeight float64
		for i, v := range vectors {
			w := weights[i]
			totalWeight += w
			for j, x := range v {
				out[j] += x * w
			}
		}
		if totalWeight == 0 {
			totalWeight = 1
		}
		for i := range out {
			out[i] /= totalWeight
		}
		return out, nil

	case AggFirst:
		return append([]float64{}, vectors[0]...), nil

	case AggLast:
		return append([]float64{}, vectors[len(vectors)-1]...), nil

	case AggMax:
		out := make([]float64, dims)
		copy(out, vectors[0])
		for _, v := range vectors[1:] {
			for i, x := range v {
				if x > out[i] {
					out[i] = x
				}
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unknown aggregation strategy: %s", strategy)
	}
}
