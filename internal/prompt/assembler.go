// Package prompt assembles grounded generation prompts from retrieved chunks.
package prompt

import (
	"fmt"
	"strings"

	"github.com/medintel/medrag/internal/models"
)

// RefusalAnswer is returned verbatim whenever retrieval yields nothing the
// generator could safely ground an answer in. The generator is never called
// in that case.
const RefusalAnswer = "I'm sorry, I don't have enough verified information to answer that safely. Please consult with a healthcare professional for accurate medical advice."

// Disclaimer is appended to every generated answer that does not already
// carry it.
const Disclaimer = "⚠️ This information is for educational purposes only and is not a substitute for professional medical advice."

// systemInstruction constrains the generator to the retrieved context.
const systemInstruction = `You are MedIntel, a medical AI assistant designed to provide fact-based, reliable, and explainable answers.
You are connected to a retrieval system that provides verified medical documents.
Your task is to answer medical queries using ONLY the information retrieved below.

CRITICAL RULES:
1. Use clear, simple language while maintaining medical accuracy
2. Every factual claim MUST have a citation in the format [DOC_X] where X is the document number
3. At the end of your response, list all sources as: "Sources: [DOC_1: Title], [DOC_2: Title], ..."
4. If the retrieved documents do not answer the question, reply: "I'm sorry, I don't have enough verified information to answer that safely."
5. NEVER fabricate or infer medical facts not present in the retrieved documents
6. Do NOT diagnose users or prescribe treatments. Your purpose is to inform, not diagnose.
7. Always include this disclaimer: "` + Disclaimer + `"`

// Assembler builds generation prompts with numbered context blocks.
type Assembler struct {
	maxContextChars int
}

// NewAssembler creates an assembler. maxContextChars caps the total size of
// the context section; zero or negative means unlimited.
func NewAssembler(maxContextChars int) *Assembler {
	return &Assembler{maxContextChars: maxContextChars}
}

// Prompt pairs the system instruction with the user message holding the
// numbered context and the question.
type Prompt struct {
	System string
	User   string
	// Included lists the chunks that made it into the context, in block
	// order: Included[i] is the chunk cited as [DOC_i+1].
	Included []*models.RetrievedChunk
}

// Assemble builds the prompt for a question over retrieved chunks. Chunks are
// numbered [DOC_1]..[DOC_n] in descending similarity order. When the budget
// is exceeded, whole lowest-ranked chunks are dropped; a chunk is never
// truncated mid-text. At least the top chunk is always included.
func (a *Assembler) Assemble(question string, result *models.RetrievalResult) *Prompt {
	var blocks []string
	var included []*models.RetrievedChunk
	used := 0
	for _, rc := range result.Chunks {
		block := formatBlock(len(included)+1, rc)
		if a.maxContextChars > 0 && len(included) > 0 && used+len(block) > a.maxContextChars {
			break
		}
		blocks = append(blocks, block)
		included = append(included, rc)
		used += len(block)
	}

	var b strings.Builder
	b.WriteString("Retrieved Context:\n")
	b.WriteString(strings.Join(blocks, "\n"))
	b.WriteString("\n\nUser Query: ")
	b.WriteString(question)
	b.WriteString("\n\nProvide your answer with inline citations:")

	return &Prompt{
		System:   systemInstruction,
		User:     b.String(),
		Included: included,
	}
}

func formatBlock(n int, rc *models.RetrievedChunk) string {
	year := rc.Document.Year
	if year == "" {
		year = "N/A"
	}
	source := rc.Document.Source
	if source == "" {
		source = "unknown"
	}
	return fmt.Sprintf("[DOC_%d] %s (%s, %s)\nContent: %s\nRelevance Score: %.3f\n",
		n, rc.Document.Title, source, year, rc.Chunk.Content, rc.Similarity)
}

// EnsureDisclaimer appends the disclaimer to answer unless it already
// mentions the educational-purposes notice.
func EnsureDisclaimer(answer string) string {
	if strings.Contains(strings.ToLower(answer), "educational purposes") {
		return answer
	}
	return answer + "\n\n" + Disclaimer
}

// HasCitations reports whether the answer carries at least one [DOC_i] marker.
func HasCitations(answer string) bool {
	return strings.Contains(answer, "[DOC_")
}
