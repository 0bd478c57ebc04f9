// Package text splits document text into overlapping chunks for embedding.
package text

import "strings"

// Chunk splits text into ordered chunks of at most roughly chunkSize
// characters, cut at sentence boundaries. Each chunk after the first is
// seeded with the trailing words of the previous one, approximating
// overlap characters of carried-over context, so that meaning spanning a
// boundary survives retrieval.
//
// The function is pure: identical inputs always produce identical output.
// Empty or whitespace-only text yields no chunks. A single sentence longer
// than chunkSize is emitted whole, never truncated.
func Chunk(text string, chunkSize, overlap int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := strings.Split(text, ". ")

	var chunks []string
	var current strings.Builder

	for _, sentence := range sentences {
		if current.Len()+len(sentence) > chunkSize && current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))

			// Seed the next chunk with the tail of the one just emitted.
			// Word granularity: overlap/10 words approximates overlap
			// characters of context.
			words := strings.Fields(current.String())
			current.Reset()
			carry := overlap / 10
			if carry > 0 && len(words) > carry {
				for _, w := range words[len(words)-carry:] {
					current.WriteString(w)
					current.WriteString(" ")
				}
			}
		}
		current.WriteString(sentence)
		current.WriteString(". ")
	}

	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	return chunks
}
