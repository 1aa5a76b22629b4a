package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testColumns = []string{
	"ZipCode", "RegionName", "State", "County", "ZMediumRent", "ZMediumValue",
	"IncomeLimits", "FourBedroom", "ZillowRatio",
}

func TestIsDataQuery(t *testing.T) {
	c := NewClassifier(testColumns)

	dataQueries := []string{
		"What is the median rent in ZIP 90210?",
		"Show me the top 10 most expensive cities",
		"how many records are in the dataset",
		"Which state has the highest income limits?",
		"compare ZillowRatio across Texas cities",
	}
	for _, q := range dataQueries {
		assert.True(t, c.IsDataQuery(q), "expected data query: %q", q)
	}

	generalQueries := []string{
		"What is the capital of France?",
		"Tell me a joke",
		"Who won the world cup in 2022?",
		"hello",
	}
	for _, q := range generalQueries {
		assert.False(t, c.IsDataQuery(q), "expected general query: %q", q)
	}
}

func TestIsDataQueryColumnReference(t *testing.T) {
	c := NewClassifier(testColumns)

	// No generic keyword, but a token close to a schema column.
	assert.True(t, c.IsDataQuery("ZMediumRent across Texas?"))
	assert.True(t, c.IsDataQuery("incomelimits by county please"))
}

func TestIsDataQueryIsDeterministic(t *testing.T) {
	c := NewClassifier(testColumns)
	msg := "Show me affordable cities in Texas"
	first := c.IsDataQuery(msg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.IsDataQuery(msg))
	}
}

func TestClassifierWithoutColumns(t *testing.T) {
	c := NewClassifier(nil)

	// Keyword pass still works without a schema.
	assert.True(t, c.IsDataQuery("show me something"))
	assert.False(t, c.IsDataQuery("ZMediumRent?"))
}
