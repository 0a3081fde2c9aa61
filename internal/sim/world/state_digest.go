package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// stateDigest hashes everything that drives the next tick plus the loaded
// chunk set. Two worlds fed the same inputs must agree on every tick.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	f64 := func(v float64) { u64(math.Float64bits(v)) }
	vec3 := func(v mgl64.Vec3) {
		f64(v.X())
		f64(v.Y())
		f64(v.Z())
	}
	flag := func(b bool) {
		if b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	}

	u64(nowTick)
	h.Write([]byte{byte(w.ctl.Kind())})
	flag(w.flags.Forward)
	flag(w.flags.Back)
	flag(w.flags.Left)
	flag(w.flags.Right)
	f64(w.look.Yaw)
	f64(w.look.Pitch)

	if wb := w.ctl.Walker(); wb != nil {
		vec3(wb.Pos)
		f64(wb.VelY)
		flag(wb.CanJump)
	}
	p := w.ctl.Plane()
	vec3(p.Pos)
	f64(p.Orient.Pitch)
	f64(p.Orient.Yaw)
	f64(p.Orient.Roll)
	f64(p.Speed)
	flag(p.Flying)
	f64(p.Propeller)
	flag(w.ctl.TicketVisible())

	for _, k := range w.chunks.LoadedChunkKeys() {
		ch, _ := w.chunks.Chunk(k)
		d := ch.Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
