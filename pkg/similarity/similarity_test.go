package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineIdentical(t *testing.T) {
	v := []float64{1, 2, 3}
	score, err := ComputeSimilarity(v, v, MetricCosine)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)
}

func TestCosineZeroVector(t *testing.T) {
	zero := []float64{0, 0, 0}
	v := []float64{1, 2, 3}
	score, err := ComputeSimilarity(zero, v, MetricCosine)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestDimensionMismatchYieldsZeroNotError(t *testing.T) {
	score, err := ComputeSimilarity([]float64{1, 2}, []float64{1, 2, 3}, MetricCosine)
	assert.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestComputeSimilarityMatrixSymmetric(t *testing.T) {
	vectors := [][]float64{{1, 0}, {0, 1}, {1, 1}}
	matrix, err := ComputeSimilarityMatrix(vectors, MetricCosine)
	assert.NoError(t, err)
	for i := range matrix {
		assert.InDelta(t, 1.0, matrix[i][i], 1e-9)
		for j := range matrix {
			assert.InDelta(t, matrix[i][j], matrix[j][i], 1e-9)
		}
	}
}

func TestFindSimilarTopKAndThreshold(t *testing.T) {
	query := []float64{1, 0}
	candidates := map[string][]float64{
		"a": {1, 0},
		"b": {0, 1},
		"c": {0.9, 0.1},
	}
	results, err := FindSimilar(query, candidates, MetricCosine, 2, 0.5)
	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ConversationID)
}

func TestFindSimilarNoEmbeddings(t *testing.T) {
	_, err := FindSimilar([]float64{1, 0}, map[string][]float64{}, MetricCosine, 10, 0)
	assert.Equal(t, ErrNoEmbeddings, err)
}
