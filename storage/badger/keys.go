package badger

import (
	"github.com/poiesic/broadlistening/core"
	"github.com/poiesic/broadlistening/storage"
)

// Key prefixes for different data types
const (
	runPrefix       = "run:"
	embeddingPrefix = "emb:"
)

// makeRunKey generates a key for a run record. ULIDs sort by creation time,
// so prefix iteration yields runs in creation order.
func makeRunKey(id string) []byte {
	return []byte(runPrefix + id)
}

// makeEmbeddingKey generates a composite key for a cached vector.
// Format: prefix model 0x00 contentID
func makeEmbeddingKey(model string, id core.ID) []byte {
	buf := make([]byte, 0, len(embeddingPrefix)+len(model)+1+8)
	buf = append(buf, embeddingPrefix...)
	buf = append(buf, model...)
	buf = append(buf, 0)
	return append(buf, storage.MarshalID(id)...)
}
