package embedding

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

// Provider produces dense vectors from text. Implementations that need a
// fitted vocabulary (e.g. TF-IDF) must be Fit before Embed is called;
// calling Embed on an unfitted TFIDFProvider returns ErrNotFitted.
type Provider interface {
	Name() string
	Dims() int
	Embed(text string) ([]float64, error)
	EmbedBatch(texts []string) ([][]float64, error)
}

// ErrNotFitted is returned by TFIDFProvider.Embed when Fit has not been
// called.
var ErrNotFitted = fmt.Errorf("provider requires Fit before Embed")

// NewProvider constructs a Provider by name. Unknown names fail loudly at
// construction rather than silently falling back to a default.
func NewProvider(name string, dims int) (Provider, error) {
	switch name {
	case "tfidf":
		return NewTFIDFProvider(dims), nil
	case "hashing":
		return NewHashingProvider(dims), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", name)
	}
}

var en = stopwords.MustGet("en")

func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	out := tokens[:0]
	for _, t := range tokens {
		if !en.Contains(t) {
			out = append(out, t)
		}
	}
	return out
}

// TFIDFProvider is a pure-Go term-frequency/inverse-document-frequency
// provider, grounded on ctk/semantic_net.py's prior use of scikit-learn's
// TfidfVectorizer. Fit builds the vocabulary and document frequencies from
// a corpus; Embed projects a new document onto that fixed vocabulary.
type TFIDFProvider struct {
	dims    int
	vocab   map[string]int
	idf     []float64
	fitted  bool
}

// NewTFIDFProvider constructs an unfitted TF-IDF provider. dims bounds the
// vocabulary size: only the dims most frequent terms across the fit corpus
// are kept.
func NewTFIDFProvider(dims int) *TFIDFProvider {
	if dims <= 0 {
		dims = 512
	}
	return &TFIDFProvider{dims: dims}
}

func (p *TFIDFProvider) Name() string { return "tfidf" }
func (p *TFIDFProvider) Dims() int    { return len(p.vocab) }

// Fit builds the vocabulary and IDF weights from corpus. Calling Fit again
// replaces the previous vocabulary.
func (p *TFIDFProvider) Fit(corpus []string) {
	docFreq := make(map[string]int)
	totalTermCount := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(doc) {
			totalTermCount[tok]++
			if _, ok := seen[tok]; !ok {
				docFreq[tok]++
				seen[tok] = struct{}{}
			}
		}
	}

	type termCount struct {
		term  string
		count int
	}
	terms := make([]termCount, 0, len(totalTermCount))
	for t, c := range totalTermCount {
		terms = append(terms, termCount{t, c})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].count != terms[j].count {
			return terms[i].count > terms[j].count
		}
		return terms[i].term < terms[j].term
	})
	if len(terms) > p.dims {
		terms = terms[:p.dims]
	}

	n := float64(len(corpus))
	if n == 0 {
		n = 1
	}
	vocab := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, t := range terms {
		vocab[t.term] = i
		idf[i] = math.Log(n/float64(1+docFreq[t.term])) + 1
	}
	p.vocab = vocab
	p.idf = idf
	p.fitted = true
}

// Embed projects text onto the fitted vocabulary as an L2-normalized
// TF-IDF vector.
func (p *TFIDFProvider) Embed(text string) ([]float64, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	vec := make([]float64, len(p.vocab))
	tf := make(map[int]int)
	tokens := tokenize(text)
	for _, tok := range tokens {
		if idx, ok := p.vocab[tok]; ok {
			tf[idx]++
		}
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(max(1, len(tokens))) * p.idf[idx]
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (p *TFIDFProvider) EmbedBatch(texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := p.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func normalize(v []float64) {
	var norm float64
	for _, x := range v {
		norm += x * x
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] /= norm
	}
}

// HashingProvider is a dependency-free deterministic provider using the
// feature-hashing trick: each token is hashed into a fixed-width vector.
// It requires no corpus. NewProvider selects it only when asked for
// "hashing" by name; there is no automatic fallback to it.
type HashingProvider struct {
	dims int
}

// NewHashingProvider constructs a provider producing vectors of the given
// width.
func NewHashingProvider(dims int) *HashingProvider {
	if dims <= 0 {
		dims = 256
	}
	return &HashingProvider{dims: dims}
}

func (p *HashingProvider) Name() string { return "hashing" }
func (p *HashingProvider) Dims() int    { return p.dims }

func (p *HashingProvider) Embed(text string) ([]float64, error) {
	vec := make([]float64, p.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		idx := int(h.Sum32()) % p.dims
		if idx < 0 {
			idx += p.dims
		}
		vec[idx]++
	}
	normalize(vec)
	return vec, nil
}

func (p *HashingProvider) EmbedBatch(texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := p.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
