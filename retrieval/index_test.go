package retrieval

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexValidation(t *testing.T) {
	var corpusErr *CorpusError

	_, err := NewIndex([]Document{{ID: "", Content: "text"}})
	require.True(t, errors.As(err, &corpusErr))

	_, err = NewIndex([]Document{
		{ID: "a", Content: "one"},
		{ID: "a", Content: "two"},
	})
	require.True(t, errors.As(err, &corpusErr))
	assert.Equal(t, "a", corpusErr.DocumentID)

	_, err = NewIndex([]Document{{ID: "a", Content: "   "}})
	require.True(t, errors.As(err, &corpusErr))
}

func TestQueryRanksByRelevance(t *testing.T) {
	ix, err := NewIndex([]Document{
		{ID: "structuring", Content: "cash deposits below the reporting threshold structuring smurfing"},
		{ID: "trade", Content: "trade invoices shipping over-invoicing goods customs"},
		{ID: "mule", Content: "fraud victim proceeds mule account withdrawals"},
	})
	require.NoError(t, err)

	matches := ix.Query("repeated cash deposits just under the threshold", 2)
	require.NotEmpty(t, matches)
	assert.Equal(t, "structuring", matches[0].DocumentID)
	assert.LessOrEqual(t, len(matches), 2)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestQueryTopKBounds(t *testing.T) {
	ix, err := NewIndex(DefaultCorpus())
	require.NoError(t, err)

	assert.Nil(t, ix.Query("structuring", 0))

	all := ix.Query("suspicious transaction narrative customer", ix.Size()+10)
	assert.Len(t, all, ix.Size())
}

func TestQueryDisjointTermsKeepsZeroScores(t *testing.T) {
	ix, err := NewIndex([]Document{
		{ID: "first", Content: "alpha beta gamma"},
		{ID: "second", Content: "delta epsilon zeta"},
	})
	require.NoError(t, err)

	matches := ix.Query("completely unrelated vocabulary", 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].DocumentID)
	assert.Equal(t, "second", matches[1].DocumentID)
	assert.Zero(t, matches[0].Score)
	assert.Zero(t, matches[1].Score)

	// An empty query is the same case: nothing overlaps.
	matches = ix.Query("", 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "first", matches[0].DocumentID)
	assert.Zero(t, matches[0].Score)
}

func TestEmptyCorpus(t *testing.T) {
	ix, err := NewIndex(nil)
	require.NoError(t, err)

	assert.Zero(t, ix.Size())
	assert.Empty(t, ix.Query("structuring deposits", 3))
}

func TestQueryTiesKeepCorpusOrder(t *testing.T) {
	ix, err := NewIndex([]Document{
		{ID: "first", Content: "alpha beta"},
		{ID: "second", Content: "alpha beta"},
	})
	require.NoError(t, err)

	matches := ix.Query("alpha", 2)
	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].DocumentID)
	assert.Equal(t, "second", matches[1].DocumentID)
	assert.InDelta(t, matches[0].Score, matches[1].Score, 1e-9)
}

func TestDefaultCorpusRetrieval(t *testing.T) {
	ix, err := NewIndex(DefaultCorpus())
	require.NoError(t, err)

	matches := ix.Query("high value transfers to a high risk jurisdiction sanctions FATF", 3)
	require.NotEmpty(t, matches)

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.DocumentID)
	}
	assert.Contains(t, ids, "tmpl_high_risk_jurisdiction")

	matches = ix.Query("structuring deposits below threshold smurfing layering", 3)
	require.NotEmpty(t, matches)
	assert.Equal(t, "tmpl_structured_layering", matches[0].DocumentID)
}

func TestDocumentLookup(t *testing.T) {
	ix, err := NewIndex(DefaultCorpus())
	require.NoError(t, err)

	doc, ok := ix.Document("reg_poca_part7")
	require.True(t, ok)
	assert.Contains(t, doc.Content, "Proceeds of Crime Act")

	_, ok = ix.Document("missing")
	assert.False(t, ok)
}
