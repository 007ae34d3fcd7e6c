package hashing

import (
	"crypto/sha256"
	"errors"
	"io"

	"veritas/internal/domain"
)

const (
	Algorithm        = "sha256"
	DefaultChunkSize = 1 << 20
)

// Hasher computes streaming content digests. Content at most one chunk long
// gets a plain hash; anything longer gets a chunked tree. The stream is never
// materialized: only one chunk buffer plus the accumulated chunk hashes are
// resident at a time.
type Hasher struct {
	ChunkSize       int64
	MaxContentBytes int64
}

func NewHasher(chunkSize, maxContentBytes int64) *Hasher {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Hasher{ChunkSize: chunkSize, MaxContentBytes: maxContentBytes}
}

// Digest consumes r to EOF. Exceeding MaxContentBytes aborts with
// domain.ErrFileTooLarge before the remainder of the stream is read.
func (h *Hasher) Digest(r io.Reader) (domain.MediaDigest, error) {
	chunkSize := h.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	buf := make([]byte, chunkSize)
	var chunkHashes [][]byte
	var total int64
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			total += int64(n)
			if h.MaxContentBytes > 0 && total > h.MaxContentBytes {
				return domain.MediaDigest{}, domain.ErrFileTooLarge
			}
			sum := sha256.Sum256(buf[:n])
			chunkHashes = append(chunkHashes, sum[:])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return domain.MediaDigest{}, err
		}
	}

	switch len(chunkHashes) {
	case 0:
		sum := sha256.Sum256(nil)
		return domain.MediaDigest{Algorithm: Algorithm, RootHash: sum[:]}, nil
	case 1:
		return domain.MediaDigest{Algorithm: Algorithm, RootHash: chunkHashes[0]}, nil
	}

	root, err := Root(chunkHashes)
	if err != nil {
		return domain.MediaDigest{}, err
	}
	return domain.MediaDigest{
		Algorithm:   Algorithm,
		RootHash:    root,
		ChunkHashes: chunkHashes,
	}, nil
}
