package chat

import (
	"strings"

	"housing-data-go/pkg/fuzzy"
)

// dataKeywords are the intent markers that route a message to the query
// engine: analysis verbs, aggregate words and domain vocabulary.
var dataKeywords = []string{
	"show", "find", "get", "list", "what are", "which", "how many", "count",
	"average", "median", "highest", "lowest", "top", "bottom", "compare",
	"rent", "price", "value", "income", "city", "state", "expensive", "cheap",
	"affordable", "ratio", "bedroom", "apartment", "housing", "real estate",
	"zillow", "hud", "market", "analysis", "data", "statistics", "stats",
}

// columnTokenFloor is the similarity a message token must reach against a
// schema column name to count as a dataset reference.
const columnTokenFloor = 0.88

// Classifier decides whether a message targets the ingested dataset.
// Classification is deterministic for identical input and schema.
type Classifier struct {
	columns []string
}

// NewClassifier builds a classifier over the dataset's column names. A nil
// or empty column list disables the fuzzy schema pass but keeps the keyword
// pass.
func NewClassifier(columns []string) *Classifier {
	lowered := make([]string, 0, len(columns))
	for _, c := range columns {
		lowered = append(lowered, strings.ToLower(c))
	}
	return &Classifier{columns: lowered}
}

// IsDataQuery reports whether the message is asking for data analysis.
func (c *Classifier) IsDataQuery(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range dataKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	// A token close to a column name is a dataset reference even without
	// any of the generic keywords ("ZMediumRent in Texas?").
	for _, token := range strings.Fields(lower) {
		token = strings.Trim(token, ".,;:?!\"'()")
		if len(token) < 4 {
			continue
		}
		if _, score, ok := fuzzy.BestMatch(token, c.columns, columnTokenFloor); ok && score >= columnTokenFloor {
			return true
		}
	}
	return false
}
