package textutil

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Vectorize builds one tf-idf vector per document over the vocabulary of all
// documents. Term frequency is the raw count; inverse document frequency is
// ln(N/df). A term present in every document gets weight zero.
func Vectorize(docs [][]string) [][]float64 {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]struct{}, len(doc))
		for _, term := range doc {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	vocabulary := make([]string, 0, len(df))
	for term := range df {
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)

	index := make(map[string]int, len(vocabulary))
	idf := make([]float64, len(vocabulary))
	n := float64(len(docs))
	for i, term := range vocabulary {
		index[term] = i
		idf[i] = math.Log(n / float64(df[term]))
	}

	vectors := make([][]float64, len(docs))
	for d, doc := range docs {
		vector := make([]float64, len(vocabulary))
		for _, term := range doc {
			vector[index[term]]++
		}
		floats.Mul(vector, idf)
		vectors[d] = vector
	}
	return vectors
}

// CosineSimilarity returns the cosine of the angle between x and y, or 0 when
// either vector has no weight
func CosineSimilarity(x, y []float64) float64 {
	dot := floats.Dot(x, y)
	if dot == 0 {
		return 0
	}
	return dot / (floats.Norm(x, 2) * floats.Norm(y, 2))
}
