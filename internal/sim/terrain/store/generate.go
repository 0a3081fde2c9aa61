package store

import genpkg "skyticket.ai/internal/sim/terrain/gen"

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	size := ch.Size
	ox := float64(ch.CX) * float64(size)
	oz := float64(ch.CZ) * float64(size)

	for z := 0; z <= size; z++ {
		for x := 0; x <= size; x++ {
			ch.Heights[ch.vindex(x, z)] = s.Field.Height(ox+float64(x), oz+float64(z))
		}
	}

	ch.Trees = ch.Trees[:0]
	for z := 0; z < size; z++ {
		for x := 0; x < size; x++ {
			h := ch.Heights[ch.vindex(x, z)]
			surface := genpkg.Surface(h)
			top := ch.layers.Top(surface)
			ch.Surface[ch.cindex(x, z)] = surface
			ch.Top[ch.cindex(x, z)] = top

			if top != genpkg.Grass {
				continue
			}
			wx := ch.CX*size + x
			wz := ch.CZ*size + z
			if genpkg.TreeAt(s.Cfg.Seed, wx, wz, s.Cfg.TreePermille) {
				ch.Trees = append(ch.Trees, Tree{
					LX:     x,
					LZ:     z,
					Base:   h,
					Height: genpkg.TreeHeight(s.Cfg.Seed, wx, wz),
				})
			}
		}
	}
}

func (s *ChunkStore) newChunk(cx, cz int) *Chunk {
	size := s.Cfg.Size
	return &Chunk{
		CX:      cx,
		CZ:      cz,
		Size:    size,
		Heights: make([]float64, (size+1)*(size+1)),
		Surface: make([]int, size*size),
		Top:     make([]genpkg.Material, size*size),
		layers:  s.Cfg.Layers,
	}
}
