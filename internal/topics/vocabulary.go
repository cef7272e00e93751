package topics

import (
	"context"
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"golang.org/x/sync/errgroup"
)

// Vocabulary is the immutable set of terms eligible for TF-IDF in one
// modeling call. Docs[i] holds the indices of the documents containing
// Terms[i].
type Vocabulary struct {
	Terms   []string
	Index   map[string]int
	DocFreq []int
	Docs    []*roaring.Bitmap
	N       int
}

// DocFreqBounds returns the inclusive document-frequency window a term must
// fall into for a corpus of n documents.
func DocFreqBounds(n int) (lo, hi int) {
	lo = max(2, int(math.Floor(0.05*float64(n))))
	hi = int(math.Floor(0.8 * float64(n)))
	return lo, hi
}

// BuildVocabulary selects the terms whose document frequency falls within
// DocFreqBounds, keeping at most maxSize terms by document frequency
// (ties lexicographic).
func BuildVocabulary(docs [][]string, maxSize int) *Vocabulary {
	df := make(map[string]int)
	for _, words := range docs {
		seen := make(map[string]bool, len(words))
		for _, w := range words {
			if !seen[w] {
				seen[w] = true
				df[w]++
			}
		}
	}

	lo, hi := DocFreqBounds(len(docs))
	terms := make([]string, 0, len(df))
	for term, count := range df {
		if count >= lo && count <= hi {
			terms = append(terms, term)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if maxSize > 0 && len(terms) > maxSize {
		terms = terms[:maxSize]
	}
	return newVocabulary(docs, terms)
}

func newVocabulary(docs [][]string, terms []string) *Vocabulary {
	v := &Vocabulary{
		Terms:   terms,
		Index:   make(map[string]int, len(terms)),
		DocFreq: make([]int, len(terms)),
		Docs:    make([]*roaring.Bitmap, len(terms)),
		N:       len(docs),
	}
	for i, t := range terms {
		v.Index[t] = i
		v.Docs[i] = roaring.New()
	}
	for d, words := range docs {
		for _, w := range words {
			if i, ok := v.Index[w]; ok {
				v.Docs[i].Add(uint32(d))
			}
		}
	}
	for i, bm := range v.Docs {
		v.DocFreq[i] = int(bm.GetCardinality())
	}
	return v
}

// Len returns the number of terms
func (v *Vocabulary) Len() int {
	return len(v.Terms)
}

// IDF is ln(n/df), zero when df or n is not positive
func IDF(n, df int) float64 {
	if n <= 0 || df <= 0 {
		return 0
	}
	return math.Log(float64(n) / float64(df))
}

// CoOccurrence counts the documents containing both term i and term j
func (v *Vocabulary) CoOccurrence(i, j int) int {
	return int(roaring.And(v.Docs[i], v.Docs[j]).GetCardinality())
}

// PMI is ln(co*N / (df_i*df_j)). ok is false when the terms never share a
// document.
func (v *Vocabulary) PMI(i, j int) (pmi float64, ok bool) {
	co := v.CoOccurrence(i, j)
	if co == 0 || v.DocFreq[i] == 0 || v.DocFreq[j] == 0 {
		return 0, false
	}
	return math.Log(float64(co) * float64(v.N) / (float64(v.DocFreq[i]) * float64(v.DocFreq[j]))), true
}

// Vectorize builds one TF-IDF row per document. Term frequency is divided by
// the document's most frequent token count. Rows are filled concurrently;
// each worker writes only its own rows.
func (v *Vocabulary) Vectorize(ctx context.Context, docs [][]string, workers int) ([][]float64, error) {
	idf := make([]float64, v.Len())
	for i, df := range v.DocFreq {
		idf[i] = IDF(v.N, df)
	}

	vectors := make([][]float64, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for d := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			vectors[d] = v.vector(docs[d], idf)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (v *Vocabulary) vector(words []string, idf []float64) []float64 {
	row := make([]float64, v.Len())
	counts := make(map[string]int, len(words))
	maxCount := 0
	for _, w := range words {
		counts[w]++
		if counts[w] > maxCount {
			maxCount = counts[w]
		}
	}
	if maxCount == 0 {
		return row
	}
	for term, count := range counts {
		if i, ok := v.Index[term]; ok {
			row[i] = float64(count) / float64(maxCount) * idf[i]
		}
	}
	return row
}
