// Package topics discovers topics in a corpus by clustering TF-IDF vectors
// with cosine k-means and scoring each cluster's keywords by PMI coherence.
package topics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

// Config tunes the topic modeler. Zero fields take their defaults, including
// Preprocess when its MinWordLength is unset. A negative MergeThreshold
// disables cluster merging.
type Config struct {
	MaxVocabulary      int
	MinTopicVocabulary int
	MaxIterations      int
	MaxTopics          int
	TopKeywords        int
	CoherenceKeywords  int
	RepresentativeDocs int
	Seed               int64
	Init               InitMethod
	MergeThreshold     float64
	Workers            int
	Preprocess         textproc.Options
	Logger             *slog.Logger
}

// DefaultConfig returns the standard modeler settings
func DefaultConfig() Config {
	return Config{
		MaxVocabulary:      500,
		MinTopicVocabulary: 10,
		MaxIterations:      100,
		MaxTopics:          8,
		TopKeywords:        8,
		CoherenceKeywords:  5,
		RepresentativeDocs: 3,
		Init:               InitKMeansPlusPlus,
		MergeThreshold:     0.8,
		Workers:            runtime.GOMAXPROCS(0),
		Preprocess:         textproc.DefaultOptions(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxVocabulary <= 0 {
		c.MaxVocabulary = d.MaxVocabulary
	}
	if c.MinTopicVocabulary <= 0 {
		c.MinTopicVocabulary = d.MinTopicVocabulary
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxTopics <= 0 {
		c.MaxTopics = d.MaxTopics
	}
	if c.TopKeywords <= 0 {
		c.TopKeywords = d.TopKeywords
	}
	if c.CoherenceKeywords <= 0 {
		c.CoherenceKeywords = d.CoherenceKeywords
	}
	if c.RepresentativeDocs <= 0 {
		c.RepresentativeDocs = d.RepresentativeDocs
	}
	if c.Init == "" {
		c.Init = d.Init
	}
	if c.MergeThreshold == 0 {
		c.MergeThreshold = d.MergeThreshold
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.Preprocess.MinWordLength == 0 {
		c.Preprocess = d.Preprocess
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Modeler runs topic modeling with a fixed Config. It holds no per-call
// state and is safe for concurrent use.
type Modeler struct {
	cfg Config
}

// New creates a Modeler
func New(cfg Config) *Modeler {
	return &Modeler{cfg: cfg.withDefaults()}
}

// ModelTopics runs the default modeler. targetTopicCount <= 0 picks the topic
// count from the corpus size.
func ModelTopics(documents []string, targetTopicCount int) []models.Topic {
	return New(DefaultConfig()).Model(context.Background(), documents, targetTopicCount)
}

// TopicCount is min(maxTopics, max(3, floor(sqrt(n))), floor(n/10)) or the
// target bounded to [1, n].
func TopicCount(n, target, maxTopics int) int {
	if n <= 0 {
		return 0
	}
	if target > 0 {
		return min(target, n)
	}
	return min(maxTopics, max(3, int(math.Floor(math.Sqrt(float64(n))))), n/10)
}

// Model clusters documents into topics. It never fails: too little signal,
// cancellation and internal panics all yield an empty list.
func (m *Modeler) Model(ctx context.Context, documents []string, targetTopicCount int) (topics []models.Topic) {
	topics = []models.Topic{}
	logger := m.cfg.Logger

	defer func() {
		if r := recover(); r != nil {
			logger.Error("topic modeling panicked", "panic", fmt.Sprint(r), "documents", len(documents))
			topics = []models.Topic{}
		}
	}()

	result, err := m.model(ctx, documents, targetTopicCount)
	if err != nil {
		logger.Warn("topic modeling aborted", "error", err, "documents", len(documents))
		return topics
	}
	return result
}

type cluster struct {
	centroid []float64
	docs     []int
}

func (m *Modeler) model(ctx context.Context, documents []string, target int) ([]models.Topic, error) {
	start := time.Now()
	topics := []models.Topic{}
	if len(documents) == 0 {
		return topics, nil
	}

	tokenizer := textproc.NewTokenizer(m.cfg.Preprocess)
	tokens := make([][]string, len(documents))
	for i, doc := range documents {
		tokens[i] = tokenizer.Preprocess(doc).Words
	}

	vocab := BuildVocabulary(tokens, m.cfg.MaxVocabulary)
	if vocab.Len() < m.cfg.MinTopicVocabulary {
		m.cfg.Logger.Debug("not enough vocabulary for topics",
			"vocabulary", vocab.Len(), "required", m.cfg.MinTopicVocabulary)
		return topics, nil
	}

	vectors, err := vocab.Vectorize(ctx, tokens, m.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("failed to vectorize documents: %w", err)
	}

	nonZero := 0
	for _, v := range vectors {
		if floats.Norm(v, 2) > 0 {
			nonZero++
		}
	}
	k := min(TopicCount(len(documents), target, m.cfg.MaxTopics), nonZero)
	if k < 1 {
		return topics, nil
	}

	seed := m.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	km := newKMeans(vectors, k, m.cfg, rand.New(rand.NewSource(seed)))
	iterations, err := km.run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to cluster documents: %w", err)
	}

	clusters := make([]cluster, 0, k)
	for c, docs := range km.members() {
		if len(docs) > 0 {
			clusters = append(clusters, cluster{centroid: km.centroids[c], docs: docs})
		}
	}
	if m.cfg.MergeThreshold > 0 {
		clusters = mergeClusters(clusters, vectors, m.cfg.MergeThreshold)
	}

	for _, c := range clusters {
		topics = append(topics, m.describe(c, vocab, vectors, len(documents)))
	}
	sort.SliceStable(topics, func(i, j int) bool {
		return topics[i].Coherence+topics[i].Score > topics[j].Coherence+topics[j].Score
	})
	for i := range topics {
		topics[i].ID = i
	}

	m.cfg.Logger.Debug("topic modeling complete",
		"documents", len(documents),
		"vocabulary", vocab.Len(),
		"k", k,
		"iterations", iterations,
		"topics", len(topics),
		"duration_ms", time.Since(start).Milliseconds())
	return topics, nil
}

// mergeClusters repeatedly joins the most similar pair of clusters while
// their centroid cosine is at least threshold.
func mergeClusters(clusters []cluster, vectors [][]float64, threshold float64) []cluster {
	for len(clusters) > 1 {
		bi, bj, best := -1, -1, threshold
		for i := 0; i < len(clusters); i++ {
			ni := floats.Norm(clusters[i].centroid, 2)
			for j := i + 1; j < len(clusters); j++ {
				sim := cosine(clusters[i].centroid, clusters[j].centroid, ni, floats.Norm(clusters[j].centroid, 2))
				if sim >= best {
					bi, bj, best = i, j, sim
				}
			}
		}
		if bi < 0 {
			break
		}

		docs := append(append([]int(nil), clusters[bi].docs...), clusters[bj].docs...)
		sort.Ints(docs)
		centroid := make([]float64, len(clusters[bi].centroid))
		for _, d := range docs {
			floats.Add(centroid, vectors[d])
		}
		floats.Scale(1/float64(len(docs)), centroid)

		clusters[bi] = cluster{centroid: centroid, docs: docs}
		clusters = append(clusters[:bj], clusters[bj+1:]...)
	}
	return clusters
}

func (m *Modeler) describe(c cluster, vocab *Vocabulary, vectors [][]float64, n int) models.Topic {
	order := make([]int, vocab.Len())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		wa, wb := c.centroid[order[a]], c.centroid[order[b]]
		if wa != wb {
			return wa > wb
		}
		return vocab.Terms[order[a]] < vocab.Terms[order[b]]
	})

	keywords := []models.TopicKeyword{}
	var keywordIdx []int
	for _, t := range order {
		if len(keywords) == m.cfg.TopKeywords || c.centroid[t] <= 0 {
			break
		}
		keywords = append(keywords, models.TopicKeyword{
			Term:   vocab.Terms[t],
			Weight: math.Round(c.centroid[t]*10000) / 10000,
		})
		keywordIdx = append(keywordIdx, t)
	}

	labelTerms := make([]string, 0, 3)
	for i := 0; i < len(keywords) && i < 3; i++ {
		labelTerms = append(labelTerms, keywords[i].Term)
	}

	return models.Topic{
		Label:              strings.Join(labelTerms, ", "),
		Keywords:           keywords,
		Coherence:          coherence(vocab, keywordIdx, m.cfg.CoherenceKeywords),
		Score:              float64(len(c.docs)) / float64(n),
		DocumentIndices:    c.docs,
		RepresentativeDocs: representatives(c, vectors, m.cfg.RepresentativeDocs),
	}
}

// coherence averages PMI over every pair of the first limit keywords,
// skipping pairs that never share a document.
func coherence(vocab *Vocabulary, keywordIdx []int, limit int) float64 {
	if len(keywordIdx) > limit {
		keywordIdx = keywordIdx[:limit]
	}
	total, pairs := 0.0, 0
	for i := 0; i < len(keywordIdx); i++ {
		for j := i + 1; j < len(keywordIdx); j++ {
			if pmi, ok := vocab.PMI(keywordIdx[i], keywordIdx[j]); ok {
				total += pmi
				pairs++
			}
		}
	}
	if pairs == 0 {
		return 0
	}
	return math.Round(total/float64(pairs)*10000) / 10000
}

func representatives(c cluster, vectors [][]float64, limit int) []int {
	type docSim struct {
		doc int
		sim float64
	}
	centroidNorm := floats.Norm(c.centroid, 2)
	sims := make([]docSim, 0, len(c.docs))
	for _, d := range c.docs {
		sims = append(sims, docSim{d, cosine(vectors[d], c.centroid, floats.Norm(vectors[d], 2), centroidNorm)})
	}
	sort.SliceStable(sims, func(i, j int) bool { return sims[i].sim > sims[j].sim })

	result := []int{}
	for i := 0; i < len(sims) && i < limit; i++ {
		result = append(result, sims[i].doc)
	}
	return result
}
