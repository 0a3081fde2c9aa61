package store

import (
	"sort"

	"skyticket.ai/internal/sim/mathx"
)

// KeyFor returns the chunk containing world (x, z).
func (s *ChunkStore) KeyFor(x, z float64) ChunkKey {
	return ChunkKey{
		CX: mathx.ChunkCoord(x, s.Cfg.Size),
		CZ: mathx.ChunkCoord(z, s.Cfg.Size),
	}
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

func (s *ChunkStore) Chunk(k ChunkKey) (*Chunk, bool) {
	ch, ok := s.Chunks[k]
	return ch, ok
}

// GetOrGenChunk returns the cached chunk, generating and announcing it when
// absent.
func (s *ChunkStore) GetOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := s.newChunk(cx, cz)
	s.GenerateChunk(ch)
	_ = ch.Digest()
	s.Chunks[k] = ch
	s.generated++
	if s.sink != nil {
		s.sink.ChunkLoaded(ch)
	}
	return ch
}

func sortKeys(keys []ChunkKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
}

func chebyshev(a, b ChunkKey) int64 {
	dx := int64(a.CX) - int64(b.CX)
	if dx < 0 {
		dx = -dx
	}
	dz := int64(a.CZ) - int64(b.CZ)
	if dz < 0 {
		dz = -dz
	}
	if dx > dz {
		return dx
	}
	return dz
}
