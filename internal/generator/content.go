package generator

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"unicode/utf8"

	"studyforge-backend/internal/models"
)

// randomTitleTopics backs the "Course on X" fallback title when the first
// line of the notes is too short to stand on its own.
var randomTitleTopics = []string{
	"Machine Learning", "Data Structures", "Algorithms",
	"Web Development", "Artificial Intelligence", "Computer Networks",
	"Database Systems", "Operating Systems", "Software Engineering",
	"Cybersecurity", "Cloud Computing", "Mobile Development",
	"Quantum Computing", "Blockchain Technology", "Internet of Things",
	"Augmented Reality", "Virtual Reality", "Natural Language Processing",
	"Computer Vision", "Robotics", "Game Development",
	"Human-Computer Interaction", "Distributed Systems", "Parallel Computing",
}

// genericLessonTitles backs lessons whose topic slot ran out.
var genericLessonTitles = []string{
	"Introduction and Overview", "Core Concepts", "Advanced Techniques",
	"Practical Applications", "Case Studies", "Future Directions",
	"Theoretical Foundations", "Implementation Strategies", "Best Practices",
	"Performance Optimization", "Security Considerations", "Integration Methods",
	"Problem-Solving Approaches", "Analytical Frameworks", "Design Patterns",
	"Evaluation Metrics", "Comparative Analysis", "Historical Perspective",
	"Ethical Considerations", "Research Methodologies", "Industry Standards",
}

var lessonPrefix = regexp.MustCompile(`^Lesson \d+: `)

// DeriveTitle takes the first non-empty line of the notes, truncates over
// 50 characters to 47 plus an ellipsis, and replaces anything under 10
// characters with "Course on" plus a randomly chosen topic.
func DeriveTitle(notes string, rng *rand.Rand) string {
	var title string
	for _, line := range strings.Split(notes, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			title = t
			break
		}
	}

	if r := []rune(title); len(r) > 50 {
		title = string(r[:47]) + "..."
	}
	if utf8.RuneCountInString(title) < 10 {
		title = "Course on " + randomTitleTopics[rng.Intn(len(randomTitleTopics))]
	}
	return title
}

// DeriveSummary interpolates the first three topics into the summary
// template, falling back to a generic phrase when no topics are available.
func DeriveSummary(topics []string) string {
	if len(topics) > 3 {
		topics = topics[:3]
	}
	topicsText := "various important concepts and principles"
	if len(topics) > 0 {
		topicsText = "key topics such as " + strings.Join(topics, ", ")
	}
	return fmt.Sprintf("This course covers %s. You will learn fundamental theories and practical applications in this field. The material is organized into progressive lessons to help you build a comprehensive understanding of the subject matter.", topicsText)
}

// LessonContent renders the fixed lesson skeleton for a topic. The output
// is deterministic given the title; no facts are lifted from the notes
// beyond the topic label itself.
func LessonContent(title string) string {
	lower := strings.ToLower(title)
	return fmt.Sprintf(`
        <h3>%s</h3>

        <p>This lesson explores the key concepts and principles related to %s. Understanding these concepts is crucial for mastering the subject matter.</p>

        <h4>Key Points</h4>
        <ul>
            <li>The fundamental principles of %s provide a framework for understanding the broader subject.</li>
            <li>Historical development and evolution of these concepts show how our understanding has changed over time.</li>
            <li>Practical applications demonstrate the real-world relevance and importance of these ideas.</li>
            <li>Common misconceptions are addressed to ensure a clear and accurate understanding.</li>
        </ul>

        <h4>Important Concepts</h4>
        <p>The following concepts are fundamental to understanding this lesson:</p>

        <ol>
            <li><strong>Concept One:</strong> This foundational idea forms the basis for understanding the topic as a whole.</li>
            <li><strong>Concept Two:</strong> Building on the first concept, this introduces more complex relationships and interactions.</li>
            <li><strong>Concept Three:</strong> This advanced concept shows how the principles can be applied in various contexts.</li>
        </ol>

        <h4>Practical Example</h4>
        <p>Consider the following example that illustrates these concepts in action:</p>
        <div class="example-box">
            <p>When applying these principles to a real-world scenario, we might see that [example scenario]. This demonstrates how the theoretical concepts translate into practical outcomes.</p>
        </div>

        <h4>Summary</h4>
        <p>This lesson has covered several important aspects of %s. Make sure to review the key points and practice applying these concepts to reinforce your understanding.</p>
    `, title, lower, lower, lower)
}

// BuildQuiz produces the fixed five-question quiz for a topic. Three of the
// correct indices are drawn from rng at generation time and frozen into the
// record; the two "all/combination of the above" questions keep index 3.
func BuildQuiz(title string, rng *rand.Rand) models.Quiz {
	lower := strings.ToLower(title)
	return models.Quiz{Questions: []models.QuizQuestion{
		{
			Question: fmt.Sprintf("What is the primary purpose of %s?", lower),
			Options: []string{
				"To establish theoretical foundations",
				"To demonstrate practical applications",
				"To connect different concepts together",
				"To challenge existing paradigms",
			},
			CorrectIndex: rng.Intn(4),
		},
		{
			Question: fmt.Sprintf("Which of the following best describes the relationship between %s and other topics?", lower),
			Options: []string{
				"They are completely independent",
				"They build upon each other progressively",
				"They sometimes overlap in specific contexts",
				"They represent different approaches to the same problem",
			},
			CorrectIndex: rng.Intn(4),
		},
		{
			Question: fmt.Sprintf("What is a common challenge when implementing %s in practice?", lower),
			Options: []string{
				"Theoretical complexity",
				"Resource limitations",
				"Integration with existing systems",
				"All of the above",
			},
			CorrectIndex: 3,
		},
		{
			Question: fmt.Sprintf("How would you evaluate the effectiveness of %s in a real-world scenario?", lower),
			Options: []string{
				"By measuring quantitative outcomes",
				"By gathering qualitative feedback",
				"By comparing to alternative approaches",
				"By using a combination of methods",
			},
			CorrectIndex: 3,
		},
		{
			Question: fmt.Sprintf("Which of these statements about %s is most accurate?", lower),
			Options: []string{
				"It works best in isolation",
				"It requires significant expertise to implement",
				"It has limited practical applications",
				"It can be adapted to various contexts",
			},
			CorrectIndex: rng.Intn(4),
		},
	}}
}

// BuildFlashcards produces the fixed five-card deck for a topic. Any
// leading "Lesson N: " prefix is stripped before lowercasing.
func BuildFlashcards(title string) []models.Flashcard {
	simplified := strings.ToLower(lessonPrefix.ReplaceAllString(title, ""))
	return []models.Flashcard{
		{
			Term:       fmt.Sprintf("Definition of %s", simplified),
			Definition: fmt.Sprintf("The formal explanation and scope of %s, including its key characteristics and boundaries.", simplified),
		},
		{
			Term:       fmt.Sprintf("Core principles of %s", simplified),
			Definition: fmt.Sprintf("The fundamental rules and guidelines that govern how %s works and is applied in various contexts.", simplified),
		},
		{
			Term:       fmt.Sprintf("Historical development of %s", simplified),
			Definition: fmt.Sprintf("The evolution of %s over time, including major milestones and paradigm shifts in understanding.", simplified),
		},
		{
			Term:       fmt.Sprintf("Applications of %s", simplified),
			Definition: fmt.Sprintf("Real-world uses and implementations of %s, demonstrating its practical value and impact.", simplified),
		},
		{
			Term:       fmt.Sprintf("Limitations of %s", simplified),
			Definition: fmt.Sprintf("The constraints and boundaries that affect how %s can be applied, including contexts where it may not be effective.", simplified),
		},
	}
}
