package textproc

import "strings"

// StopWordSet is a lower-cased lookup set of words to ignore
type StopWordSet map[string]struct{}

// Contains reports whether word (compared case-insensitively) is a stop word
func (s StopWordSet) Contains(word string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[strings.ToLower(word)]
	return ok
}

// Add inserts words into the set
func (s StopWordSet) Add(words ...string) {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			s[w] = struct{}{}
		}
	}
}

// StopWords builds the layered stop-word set for level plus any custom words.
// Each level includes the words of the levels below it.
func StopWords(level StopWordLevel, custom ...string) StopWordSet {
	set := make(StopWordSet, 400)
	set.Add(basicStopWords...)
	switch level {
	case StopWordsExtended:
		set.Add(extendedStopWords...)
	case StopWordsComprehensive:
		set.Add(extendedStopWords...)
		set.Add(comprehensiveStopWords...)
	}
	set.Add(custom...)
	return set
}

var basicStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from", "had", "has", "have",
	"he", "her", "his", "i", "if", "in", "into", "is", "it", "its", "me", "my", "no", "nor", "not",
	"of", "on", "or", "our", "she", "so", "than", "that", "the", "their", "them", "then", "there",
	"these", "they", "this", "those", "to", "too", "us", "was", "we", "were", "what", "when",
	"where", "which", "who", "whom", "why", "will", "with", "would", "you", "your",
}

var extendedStopWords = []string{
	"about", "above", "after", "again", "against", "all", "am", "any", "aren't", "because", "been",
	"before", "being", "below", "between", "both", "can't", "cannot", "could", "couldn't", "did",
	"didn't", "do", "does", "doesn't", "doing", "don't", "down", "during", "each", "few", "further",
	"hadn't", "hasn't", "haven't", "having", "he'd", "he'll", "he's", "here", "here's", "hers",
	"herself", "him", "himself", "how", "how's", "i'd", "i'll", "i'm", "i've", "isn't", "it's",
	"itself", "let's", "more", "most", "mustn't", "myself", "off", "once", "only", "other", "ought",
	"ours", "ourselves", "out", "over", "own", "same", "shan't", "she'd", "she'll", "she's",
	"should", "shouldn't", "some", "such", "that's", "theirs", "themselves", "there's", "they'd",
	"they'll", "they're", "they've", "through", "under", "until", "up", "very", "wasn't", "we'd",
	"we'll", "we're", "we've", "weren't", "what's", "when's", "where's", "while", "who's", "why's",
	"won't", "wouldn't", "you'd", "you'll", "you're", "you've", "yours", "yourself", "yourselves",
}

var comprehensiveStopWords = []string{
	"also", "although", "among", "another", "anyone", "anything", "around", "away", "back", "became",
	"become", "becomes", "besides", "beyond", "came", "can", "come", "comes", "could've",
	"done", "either", "else", "elsewhere", "enough", "even", "ever", "every", "everyone",
	"everything", "get", "gets", "getting", "give", "given", "go", "goes", "going", "gone", "got",
	"however", "indeed", "instead", "just", "keep", "kept", "know", "known", "last", "least", "less",
	"like", "likely", "made", "make", "makes", "many", "may", "maybe", "might", "mine", "much",
	"must", "neither", "never", "next", "none", "nothing", "now", "often", "one", "onto", "others",
	"otherwise", "perhaps", "put", "quite", "rather", "really", "said", "say", "says", "see", "seem",
	"seemed", "seems", "seen", "shall", "since", "something", "sometimes", "somewhere", "still",
	"take", "taken", "thing", "things", "though", "thus", "together", "toward", "towards", "two",
	"upon", "use", "used", "using", "via", "want", "way", "well", "went", "whatever", "whether",
	"within", "without", "yet",
}
