package analyzer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tier weights. Positive words score +weight, negative words -weight.
const (
	WeightStrong   = 3.0
	WeightModerate = 2.0
	WeightMild     = 1.0
)

// Lexicon maps words to signed sentiment weights
type Lexicon struct {
	weights map[string]float64
}

// tieredWords is the on-disk lexicon layout
type tieredWords struct {
	Strong   []string `yaml:"strong"`
	Moderate []string `yaml:"moderate"`
	Mild     []string `yaml:"mild"`
}

type lexiconFile struct {
	Positive tieredWords `yaml:"positive"`
	Negative tieredWords `yaml:"negative"`
}

var builtinLexicon = lexiconFile{
	Positive: tieredWords{
		Strong: []string{
			"excellent", "amazing", "wonderful", "fantastic", "best", "love", "loved", "perfect", "awesome",
			"brilliant", "outstanding", "superb", "exceptional", "incredible", "magnificent", "marvelous",
			"terrific", "fabulous", "splendid", "delighted", "thrilled", "flawless",
		},
		Moderate: []string{
			"good", "great", "beautiful", "loving", "pleasant", "delightful", "enjoyable", "happy", "pleased",
			"satisfied", "impressive", "remarkable", "success", "successful", "win", "winning", "winner",
			"exciting", "excited", "enthusiasm", "enthusiastic", "recommend", "reliable", "helpful",
		},
		Mild: []string{
			"glad", "positive", "advantage", "benefit", "better", "improvement", "improved", "optimistic",
			"hopeful", "promising", "favorable", "nice", "fine", "decent", "fair", "useful", "easy", "fast",
		},
	},
	Negative: tieredWords{
		Strong: []string{
			"terrible", "awful", "horrible", "worst", "hate", "hated", "disgusting", "atrocious", "dreadful",
			"abysmal", "appalling", "furious", "useless", "broken", "scam",
		},
		Moderate: []string{
			"bad", "poor", "hating", "ugly", "disappointing", "disappointed", "disappointment", "fail", "failed",
			"failure", "wrong", "unhappy", "angry", "frustrated", "frustrating", "annoying", "annoyed",
			"dangerous", "harmful", "damaged", "loser", "worse", "unreliable", "slow", "rude",
		},
		Mild: []string{
			"problem", "problems", "issue", "issues", "error", "errors", "difficult", "difficulty", "hard",
			"negative", "unfortunate", "sad", "concern", "concerned", "worried", "worry", "fear", "afraid",
			"risk", "threat", "damage", "harm", "loss", "lost", "losing", "decline", "declined", "late",
		},
	},
}

var defaultLexicon = newLexicon(builtinLexicon)

func newLexicon(f lexiconFile) *Lexicon {
	l := &Lexicon{weights: make(map[string]float64, 256)}
	l.addTiers(f)
	return l
}

func (l *Lexicon) addTiers(f lexiconFile) {
	l.add(f.Positive.Strong, WeightStrong)
	l.add(f.Positive.Moderate, WeightModerate)
	l.add(f.Positive.Mild, WeightMild)
	l.add(f.Negative.Strong, -WeightStrong)
	l.add(f.Negative.Moderate, -WeightModerate)
	l.add(f.Negative.Mild, -WeightMild)
}

func (l *Lexicon) add(words []string, weight float64) {
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			l.weights[w] = weight
		}
	}
}

// DefaultLexicon returns the built-in lexicon. Callers must not modify it;
// use Merge to extend it.
func DefaultLexicon() *Lexicon {
	return defaultLexicon
}

// Weight returns the signed weight of word and whether it is in the lexicon
func (l *Lexicon) Weight(word string) (float64, bool) {
	if l == nil {
		return 0, false
	}
	w, ok := l.weights[strings.ToLower(word)]
	return w, ok
}

// Len returns the number of words in the lexicon
func (l *Lexicon) Len() int {
	if l == nil {
		return 0
	}
	return len(l.weights)
}

// Merge returns a copy of l extended with custom words at the moderate tier.
// Custom words override built-in entries; l itself is unchanged. A nil l
// merges onto the built-in lexicon.
func (l *Lexicon) Merge(positive, negative []string) *Lexicon {
	merged := l.clone()
	merged.add(positive, WeightModerate)
	merged.add(negative, -WeightModerate)
	return merged
}

func (l *Lexicon) clone() *Lexicon {
	if l == nil {
		l = defaultLexicon
	}
	c := &Lexicon{weights: make(map[string]float64, len(l.weights))}
	for w, weight := range l.weights {
		c.weights[w] = weight
	}
	return c
}

// ParseLexicon merges a YAML tiered word list onto the built-in lexicon.
//
//	positive:
//	  strong: [stellar]
//	  mild: [tidy]
//	negative:
//	  moderate: [sluggish]
func ParseLexicon(data []byte) (*Lexicon, error) {
	var f lexiconFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	l := defaultLexicon.clone()
	l.addTiers(f)
	return l, nil
}

// LoadLexiconFile reads a YAML lexicon from path
func LoadLexiconFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon: %w", err)
	}
	return ParseLexicon(data)
}
