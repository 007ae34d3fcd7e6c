package hashing

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

const HashSize = sha256.Size

var (
	ErrEmptyLevel     = errors.New("empty hash level")
	ErrInvalidHashLen = errors.New("invalid hash length")
)

// NodeHash combines two sibling hashes into their parent:
// sha256(left || right). This is the wire contract shared with signing
// devices; changing it breaks every existing signature.
func NodeHash(left, right []byte) []byte {
	hasher := sha256.New()
	hasher.Write(left)
	hasher.Write(right)
	return hasher.Sum(nil)
}

// Root folds chunk hashes bottom-up into the tree root. At each level
// adjacent pairs are combined; an odd trailing node is promoted unchanged to
// the next level. It is never duplicated and never padded.
func Root(chunkHashes [][]byte) ([]byte, error) {
	if len(chunkHashes) == 0 {
		return nil, ErrEmptyLevel
	}
	level := make([][]byte, len(chunkHashes))
	for i, h := range chunkHashes {
		if len(h) != HashSize {
			return nil, fmt.Errorf("chunk %d: %w", i, ErrInvalidHashLen)
		}
		level[i] = cloneHash(h)
	}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, NodeHash(level[i], level[i+1]))
			} else {
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0], nil
}

func cloneHash(h []byte) []byte {
	out := make([]byte, len(h))
	copy(out, h)
	return out
}
