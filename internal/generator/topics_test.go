package generator

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractTopicsEmptyInput(t *testing.T) {
	topics := ExtractTopics("")
	if !reflect.DeepEqual(topics, genericTopics) {
		t.Errorf("expected full generic list for empty input, got %v", topics)
	}
}

func TestExtractTopicsPadsToMinimum(t *testing.T) {
	topics := ExtractTopics("Machine Learning\nsome lowercase line")
	if len(topics) < 10 {
		t.Fatalf("expected at least 10 topics, got %d", len(topics))
	}
	if topics[0] != "Machine Learning" {
		t.Errorf("expected genuine topic first, got %q", topics[0])
	}
	// Padding fills by current count as index, so with one genuine topic the
	// filler starts at genericTopics[1].
	if topics[1] != genericTopics[1] {
		t.Errorf("expected filler %q at index 1, got %q", genericTopics[1], topics[1])
	}
	if topics[9] != genericTopics[9] {
		t.Errorf("expected filler %q at index 9, got %q", genericTopics[9], topics[9])
	}
}

func TestExtractTopicsFiltersAndDedupes(t *testing.T) {
	notes := "The Cat\nMachine Learning\nMachine Learning\nAnd\nAbc"
	topics := ExtractTopics(notes)

	count := 0
	for _, topic := range topics {
		if topic == "Machine Learning" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected Machine Learning exactly once, got %d", count)
	}
	for _, topic := range topics {
		if topic == "And" || topic == "Abc" || topic == "The" {
			t.Errorf("expected %q to be filtered out", topic)
		}
	}
}

func TestExtractTopicsFirstSeenOrder(t *testing.T) {
	notes := "Machine Learning Basics\n\nSupervised Learning involves training models"
	topics := ExtractTopics(notes)

	mlIdx, slIdx := -1, -1
	firstGeneric := -1
	for i, topic := range topics {
		switch topic {
		case "Machine Learning Basics":
			mlIdx = i
		case "Supervised Learning":
			slIdx = i
		}
		if firstGeneric == -1 {
			for _, g := range genericTopics {
				if topic == g {
					firstGeneric = i
					break
				}
			}
		}
	}

	if mlIdx == -1 || slIdx == -1 {
		t.Fatalf("expected both genuine topics extracted, got %v", topics)
	}
	if mlIdx > slIdx {
		t.Errorf("expected first-seen order, got ml=%d sl=%d", mlIdx, slIdx)
	}
	if firstGeneric != -1 && firstGeneric < slIdx {
		t.Errorf("generic filler at %d precedes genuine topic at %d", firstGeneric, slIdx)
	}
}

func TestExtractTopicsReproducible(t *testing.T) {
	notes := "Quantum Computing\nLinear Algebra Review\nsome filler text"
	first := ExtractTopics(notes)
	second := ExtractTopics(notes)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not reproducible: %v vs %v", first, second)
	}
	if strings.Join(first[:2], "|") != "Quantum Computing|Linear Algebra Review" {
		t.Errorf("unexpected leading topics: %v", first[:2])
	}
}
