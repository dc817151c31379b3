package vector

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	chromem "github.com/philippgille/chromem-go"
)

// DefaultDimensions is the embedding width used when Config leaves it unset.
const DefaultDimensions = 256

// HashEmbedder returns a chromem embedding func that maps text to a
// normalized bag-of-words vector by feature hashing. Each lower-cased word
// lands in an FNV-1a bucket with a hash-derived sign. It needs no model
// files and is deterministic, so equal text always embeds equally.
func HashEmbedder(dims int) chromem.EmbeddingFunc {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return func(_ context.Context, text string) ([]float32, error) {
		return embed(text, dims), nil
	}
}

func embed(text string, dims int) []float32 {
	vec := make([]float32, dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum32()
		sign := float32(1)
		if sum&0x80000000 != 0 {
			sign = -1
		}
		vec[int(sum%uint32(dims))] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// No words: a fixed unit vector keeps cosine similarity defined.
		vec[0] = 1
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
