package generator

import (
	"regexp"
	"strings"
)

// topicPattern matches runs of capitalized words ("Supervised Learning",
// "Machine Learning Basics") within a line.
var topicPattern = regexp.MustCompile(`([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)

// stopWords are connector words that the pattern picks up on their own but
// that never make useful topics.
var stopWords = map[string]bool{
	"The": true, "A": true, "An": true, "And": true, "Or": true,
	"But": true, "For": true, "With": true, "To": true, "From": true,
}

// genericTopics pads short extractions up to the minimum topic count. The
// fill is positional: the topic at index n is always genericTopics[n]'s
// slot, so the tail of every padded list reads the same.
var genericTopics = []string{
	"Introduction to the Subject",
	"Core Concepts",
	"Theoretical Foundations",
	"Practical Applications",
	"Advanced Techniques",
	"Case Studies",
	"Problem Solving Approaches",
	"Future Directions",
	"Research Methods",
	"Analytical Frameworks",
}

const minTopics = 10

// ExtractTopics derives an ordered topic list from raw note text: pattern
// matches per line, first-seen deduplication, stop-word and short-token
// filtering, then padding from genericTopics until at least minTopics
// remain. Genuine extractions always precede the generic filler. Empty
// input yields the full generic list.
func ExtractTopics(notes string) []string {
	seen := make(map[string]bool)
	var topics []string

	for _, line := range strings.Split(notes, "\n") {
		for _, match := range topicPattern.FindAllString(line, -1) {
			if seen[match] {
				continue
			}
			seen[match] = true
			if stopWords[match] || len(match) <= 3 {
				continue
			}
			topics = append(topics, match)
		}
	}

	for len(topics) < minTopics {
		topics = append(topics, genericTopics[len(topics)])
	}

	return topics
}
