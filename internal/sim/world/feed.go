package world

import (
	"skyticket.ai/internal/protocol"
	"skyticket.ai/internal/sim/terrain/store"
)

// chunkFeed turns chunk cache changes into ordered client messages.
type chunkFeed struct{ w *World }

func (f *chunkFeed) ChunkLoaded(ch *store.Chunk) {
	f.w.log.Debug().Int("cx", ch.CX).Int("cz", ch.CZ).Int("trees", len(ch.Trees)).Msg("chunk generated")
	f.w.enqueue(chunkMsg(ch))
}

func (f *chunkFeed) ChunkUnloaded(k store.ChunkKey) {
	f.w.log.Debug().Int("cx", k.CX).Int("cz", k.CZ).Msg("chunk evicted")
	f.w.enqueue(protocol.ChunkUnloadMsg{
		Type:            protocol.TypeChunkUnload,
		ProtocolVersion: protocol.Version,
		CX:              k.CX,
		CZ:              k.CZ,
	})
}

func chunkMsg(ch *store.Chunk) protocol.ChunkMsg {
	top := make([]string, len(ch.Top))
	for i, m := range ch.Top {
		top[i] = m.String()
	}
	var trees []protocol.TreeRef
	for _, t := range ch.Trees {
		trees = append(trees, protocol.TreeRef{LX: t.LX, LZ: t.LZ, Base: t.Base, Height: t.Height})
	}
	return protocol.ChunkMsg{
		Type:            protocol.TypeChunk,
		ProtocolVersion: protocol.Version,
		CX:              ch.CX,
		CZ:              ch.CZ,
		Size:            ch.Size,
		Heights:         append([]float64(nil), ch.Heights...),
		Top:             top,
		Trees:           trees,
		Digest:          ch.DigestHex(),
	}
}
