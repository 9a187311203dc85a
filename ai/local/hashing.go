package local

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"gonum.org/v1/gonum/floats"
)

// HashingModel embeds text by hashing word and character n-gram features
// into a fixed number of dimensions. Vectors are L2-normalized.
//
// It is stateless, so the same text always maps to the same vector
// regardless of what was embedded before.
type HashingModel struct {
	name       string
	dimensions int
}

// NewHashingModel returns a model producing vectors of the given size.
func NewHashingModel(name string, dimensions int) *HashingModel {
	if dimensions <= 0 {
		dimensions = 768
	}
	return &HashingModel{name: name, dimensions: dimensions}
}

// Name returns the model identifier.
func (m *HashingModel) Name() string {
	return m.name
}

// Dimensions returns the dimensionality of embeddings.
func (m *HashingModel) Dimensions() int {
	return m.dimensions
}

// Embed returns one vector per text, in input order.
func (m *HashingModel) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	buf := make([]float64, m.dimensions)
	for i, text := range texts {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for j := range buf {
			buf[j] = 0
		}
		m.accumulate(buf, features(text))

		if norm := floats.Norm(buf, 2); norm > 0 {
			floats.Scale(1/norm, buf)
		}
		vec := make([]float32, m.dimensions)
		for j, v := range buf {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// accumulate adds sublinear term weights to signed hashed dimensions.
func (m *HashingModel) accumulate(buf []float64, feats map[string]int) {
	for feat, tf := range feats {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feat))
		sum := h.Sum64()
		dim := int(sum % uint64(m.dimensions))
		weight := 1 + math.Log(float64(tf))
		if sum>>63 == 1 {
			weight = -weight
		}
		buf[dim] += weight
	}
}

// features splits text into lowercase word tokens plus character bigrams.
// Bigrams carry scripts that are written without spaces, such as Japanese.
func features(text string) map[string]int {
	feats := make(map[string]int)
	var word strings.Builder
	var prev rune

	flush := func() {
		if word.Len() > 0 {
			feats["w:"+word.String()]++
			word.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			flush()
			prev = 0
			continue
		}
		word.WriteRune(r)
		if prev != 0 {
			feats[fmt.Sprintf("b:%c%c", prev, r)]++
		} else {
			feats[fmt.Sprintf("u:%c", r)]++
		}
		prev = r
	}
	flush()
	return feats
}
