package retrieval

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// CorpusError is returned when the corpus fails validation at index build.
type CorpusError struct {
	DocumentID string
	Reason     string
}

func (e *CorpusError) Error() string {
	return fmt.Sprintf("invalid corpus document %q: %s", e.DocumentID, e.Reason)
}

// Match is one ranked result from a query
type Match struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// Index is an immutable TF-IDF index over a document corpus. It is built
// once at startup and is safe for concurrent queries.
type Index struct {
	docs []Document
	vecs []map[string]float64
	idf  map[string]float64
}

// NewIndex validates the corpus and builds the index. Documents must have
// unique, non-empty IDs and non-empty content. An empty corpus builds an
// index whose queries return no matches.
func NewIndex(docs []Document) (*Index, error) {
	seen := make(map[string]bool, len(docs))
	tokenized := make([][]string, len(docs))
	for i, d := range docs {
		if d.ID == "" {
			return nil, &CorpusError{Reason: "document has empty id"}
		}
		if seen[d.ID] {
			return nil, &CorpusError{DocumentID: d.ID, Reason: "duplicate id"}
		}
		seen[d.ID] = true
		if strings.TrimSpace(d.Content) == "" {
			return nil, &CorpusError{DocumentID: d.ID, Reason: "document has empty content"}
		}
		// Tags participate in matching alongside the body text.
		text := d.Title + " " + strings.Join(d.Tags, " ") + " " + d.Content
		tokenized[i] = tokenize(text)
	}

	df := make(map[string]int)
	for _, terms := range tokenized {
		inDoc := make(map[string]bool, len(terms))
		for _, t := range terms {
			if !inDoc[t] {
				inDoc[t] = true
				df[t]++
			}
		}
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(df))
	for term, count := range df {
		idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	ix := &Index{docs: docs, idf: idf, vecs: make([]map[string]float64, len(docs))}
	for i, terms := range tokenized {
		ix.vecs[i] = normalize(weigh(terms, idf))
	}
	return ix, nil
}

// Query ranks the corpus against the query text and returns the top k
// matches by cosine similarity. Ties preserve corpus insertion order.
// Documents that share no terms with the query score zero but are still
// returned; the caller applies any minimum-score cutoff.
func (ix *Index) Query(text string, k int) []Match {
	if k <= 0 {
		return nil
	}
	qvec := normalize(weigh(tokenize(text), ix.idf))

	matches := make([]Match, 0, len(ix.docs))
	for i, dvec := range ix.vecs {
		matches = append(matches, Match{
			DocumentID: ix.docs[i].ID,
			Title:      ix.docs[i].Title,
			Score:      dot(qvec, dvec),
		})
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Document returns the corpus document for an id, if present.
func (ix *Index) Document(id string) (Document, bool) {
	for _, d := range ix.docs {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// Size returns the number of indexed documents.
func (ix *Index) Size() int {
	return len(ix.docs)
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

func weigh(terms []string, idf map[string]float64) map[string]float64 {
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	vec := make(map[string]float64, len(tf))
	for term, count := range tf {
		w, ok := idf[term]
		if !ok {
			continue
		}
		vec[term] = float64(count) * w
	}
	return vec
}

func normalize(vec map[string]float64) map[string]float64 {
	var sum float64
	for _, w := range vec {
		sum += w * w
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	for term, w := range vec {
		vec[term] = w / norm
	}
	return vec
}

func dot(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var sum float64
	for term, w := range a {
		sum += w * b[term]
	}
	return sum
}
