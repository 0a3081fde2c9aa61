package store

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"skyticket.ai/internal/sim/mathx"
)

type EnsureResult struct {
	Center ChunkKey
	// Scanned is true when the reference entered a new chunk this call.
	Scanned   bool
	Generated int
	Evicted   int
	Pending   int
}

// EnsureAround makes sure every chunk within RenderDistance of the chunk
// containing pos exists. The radius is only rescanned when pos crosses into
// another chunk; otherwise the call just drains pending generation work.
// Chunks already present are never regenerated.
func (s *ChunkStore) EnsureAround(pos mgl64.Vec3) EnsureResult {
	c := s.KeyFor(pos.X(), pos.Z())
	res := EnsureResult{Center: c}

	if !s.hasCenter || c != s.center {
		s.center = c
		s.hasCenter = true
		s.pending = s.missingAround(c)
		res.Scanned = true
		res.Evicted = s.evictFar(c)
	}

	for len(s.pending) > 0 {
		if s.Cfg.MaxGeneratePerCall > 0 && res.Generated >= s.Cfg.MaxGeneratePerCall {
			break
		}
		k := s.pending[0]
		s.pending = s.pending[1:]
		if _, ok := s.Chunks[k]; ok {
			continue
		}
		s.GetOrGenChunk(k.CX, k.CZ)
		res.Generated++
	}
	if len(s.pending) == 0 {
		s.pending = nil
	}
	res.Pending = len(s.pending)
	return res
}

// missingAround lists absent chunks within the render square, nearest first.
func (s *ChunkStore) missingAround(c ChunkKey) []ChunkKey {
	r := s.Cfg.RenderDistance
	seen := make(map[ChunkKey]struct{}, (2*r+1)*(2*r+1))
	out := make([]ChunkKey, 0, (2*r+1)*(2*r+1))
	for dz := -r; dz <= r; dz++ {
		for dx := -r; dx <= r; dx++ {
			k := ChunkKey{CX: mathx.AddSat(c.CX, dx), CZ: mathx.AddSat(c.CZ, dz)}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if _, ok := s.Chunks[k]; ok {
				continue
			}
			out = append(out, k)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := chebyshev(out[i], c), chebyshev(out[j], c)
		if di != dj {
			return di < dj
		}
		ei, ej := euclid2(out[i], c), euclid2(out[j], c)
		if ei != ej {
			return ei < ej
		}
		if out[i].CZ != out[j].CZ {
			return out[i].CZ < out[j].CZ
		}
		return out[i].CX < out[j].CX
	})
	return out
}

// evictFar drops chunks outside RenderDistance+EvictMargin, in key order.
func (s *ChunkStore) evictFar(c ChunkKey) int {
	limit := int64(s.Cfg.RenderDistance + s.Cfg.EvictMargin)
	var drop []ChunkKey
	for k := range s.Chunks {
		if chebyshev(k, c) > limit {
			drop = append(drop, k)
		}
	}
	sortKeys(drop)
	for _, k := range drop {
		delete(s.Chunks, k)
		s.evicted++
		if s.sink != nil {
			s.sink.ChunkUnloaded(k)
		}
	}
	return len(drop)
}

func euclid2(a, b ChunkKey) int64 {
	dx := int64(a.CX) - int64(b.CX)
	dz := int64(a.CZ) - int64(b.CZ)
	return dx*dx + dz*dz
}
