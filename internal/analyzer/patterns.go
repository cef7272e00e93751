package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

// Entity categories
const (
	CategoryMultiWord = "Multi-word Entity"
	CategoryNamed     = "Named Entity"
)

var (
	emailPattern  = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	urlPattern    = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	phonePattern  = regexp.MustCompile(`(?:\+?1[-.\s]?)?(?:\(\d{3}\)|\b\d{3})[-.\s]?\d{3}[-.\s]?\d{4}\b`)
	entityPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \t]+[A-Z][a-z]+)*\b`)
	datePatterns  = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`),
		regexp.MustCompile(`\b\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\s+\d{4}\b`),
		regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	}
	trailingURLPunct = ".,;:!?"
)

// DetectPatterns finds emails, URLs, phone numbers, dates and capitalized
// entities in text.
func DetectPatterns(text string) models.Patterns {
	urls := make([]string, 0)
	for _, u := range urlPattern.FindAllString(text, -1) {
		urls = append(urls, strings.TrimRight(u, trailingURLPunct))
	}

	var dates []string
	for _, p := range datePatterns {
		dates = append(dates, p.FindAllString(text, -1)...)
	}

	return models.Patterns{
		Emails:   uniqueSorted(emailPattern.FindAllString(text, -1)),
		URLs:     uniqueSorted(urls),
		Phones:   uniqueSorted(trimAll(phonePattern.FindAllString(text, -1))),
		Dates:    uniqueSorted(dates),
		Entities: extractEntities(text),
	}
}

func extractEntities(text string) []models.Entity {
	stopWords := textproc.StopWords(textproc.StopWordsExtended)
	counts := make(map[string]int)
	for _, match := range entityPattern.FindAllString(text, -1) {
		if len(match) <= 2 {
			continue
		}
		if !strings.ContainsAny(match, " \t") && stopWords.Contains(match) {
			continue
		}
		counts[match]++
	}

	entities := []models.Entity{}
	for entity, count := range counts {
		category := CategoryNamed
		if strings.ContainsAny(entity, " \t") {
			category = CategoryMultiWord
		}
		entities = append(entities, models.Entity{Text: entity, Category: category, Count: count})
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Count != entities[j].Count {
			return entities[i].Count > entities[j].Count
		}
		return entities[i].Text < entities[j].Text
	})
	return entities
}

func trimAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}

func uniqueSorted(values []string) []string {
	unique := make(map[string]bool, len(values))
	result := []string{}
	for _, v := range values {
		if v != "" && !unique[v] {
			unique[v] = true
			result = append(result, v)
		}
	}
	sort.Strings(result)
	return result
}
