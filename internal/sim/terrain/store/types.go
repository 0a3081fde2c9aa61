package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	genpkg "skyticket.ai/internal/sim/terrain/gen"
	"skyticket.ai/internal/sim/terrain/height"
)

type ChunkKey struct {
	CX int
	CZ int
}

type Tree struct {
	LX, LZ int
	// Base is the ground elevation the trunk stands on.
	Base   float64
	Height int
}

type Chunk struct {
	CX, CZ int
	Size   int

	// Heights holds (Size+1)^2 vertex samples so neighbouring chunks share
	// their border row. Index: x + z*(Size+1).
	Heights []float64
	// Surface/Top hold one entry per column. Index: x + z*Size.
	Surface []int
	Top     []genpkg.Material
	Trees   []Tree

	layers genpkg.Layers
	hash   [32]byte
}

func (c *Chunk) vindex(x, z int) int {
	return x + z*(c.Size+1)
}

func (c *Chunk) cindex(x, z int) int {
	return x + z*c.Size
}

// VertexHeight returns the sampled elevation at local vertex (x, z), 0..Size.
func (c *Chunk) VertexHeight(x, z int) float64 {
	return c.Heights[c.vindex(x, z)]
}

// Column returns the surface layer and top material of local column (x, z).
func (c *Chunk) Column(x, z int) (int, genpkg.Material) {
	i := c.cindex(x, z)
	return c.Surface[i], c.Top[i]
}

// Block returns the voxel material at local column (x, z), layer y.
func (c *Chunk) Block(x, y, z int) genpkg.Material {
	return c.layers.MaterialAt(y, c.Surface[c.cindex(x, z)])
}

func (c *Chunk) Digest() [32]byte {
	if c.hash == ([32]byte{}) {
		h := sha256.New()
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(c.CX)))
		h.Write(tmp[:])
		binary.LittleEndian.PutUint64(tmp[:], uint64(int64(c.CZ)))
		h.Write(tmp[:])
		for _, v := range c.Heights {
			binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
			h.Write(tmp[:])
		}
		for i, s := range c.Surface {
			binary.LittleEndian.PutUint32(tmp[:4], uint32(int32(s)))
			tmp[4] = byte(c.Top[i])
			h.Write(tmp[:5])
		}
		for _, t := range c.Trees {
			binary.LittleEndian.PutUint16(tmp[:2], uint16(t.LX))
			binary.LittleEndian.PutUint16(tmp[2:4], uint16(t.LZ))
			binary.LittleEndian.PutUint16(tmp[4:6], uint16(t.Height))
			h.Write(tmp[:6])
		}
		copy(c.hash[:], h.Sum(nil))
	}
	return c.hash
}

func (c *Chunk) DigestHex() string {
	d := c.Digest()
	return hex.EncodeToString(d[:])
}

// Sink receives chunks as they enter and leave the cache. It is the scene
// insertion boundary toward the presentation layer.
type Sink interface {
	ChunkLoaded(ch *Chunk)
	ChunkUnloaded(k ChunkKey)
}

type Config struct {
	Seed int64
	Size int
	// RenderDistance is the square radius, in chunks, kept generated.
	RenderDistance int
	// Chunks farther than RenderDistance+EvictMargin from the centre are dropped.
	EvictMargin int
	// MaxGeneratePerCall bounds generation work per EnsureAround; 0 = unlimited.
	MaxGeneratePerCall int

	Layers       genpkg.Layers
	TreePermille int
}

type Stats struct {
	Loaded    int    `json:"loaded"`
	Pending   int    `json:"pending"`
	Generated uint64 `json:"generated"`
	Evicted   uint64 `json:"evicted"`
}

// ChunkStore is owned by the world loop and must not be shared across goroutines.
type ChunkStore struct {
	Cfg    Config
	Field  *height.Field
	Chunks map[ChunkKey]*Chunk

	sink Sink

	center    ChunkKey
	hasCenter bool
	pending   []ChunkKey

	generated uint64
	evicted   uint64
}

func NewChunkStore(cfg Config, field *height.Field, sink Sink) *ChunkStore {
	if cfg.Size <= 0 {
		cfg.Size = 16
	}
	if cfg.RenderDistance < 0 {
		cfg.RenderDistance = 0
	}
	if cfg.EvictMargin < 0 {
		cfg.EvictMargin = 0
	}
	return &ChunkStore{
		Cfg:    cfg,
		Field:  field,
		Chunks: map[ChunkKey]*Chunk{},
		sink:   sink,
	}
}

func (s *ChunkStore) Stats() Stats {
	return Stats{
		Loaded:    len(s.Chunks),
		Pending:   len(s.pending),
		Generated: s.generated,
		Evicted:   s.evicted,
	}
}
