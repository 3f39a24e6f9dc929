package game

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"hellscape/internal/game/spatial"
)

// Wire sizes in bytes. All encodings are little-endian with no padding.
const (
	SnapshotHeaderSize = 8  // int32 tick, int32 actorCount
	ActorRecordSize    = 29 // id, pos, vel, hp, type, team, radius, alive
	InputCommandSize   = 21 // tick, move, aim, buttons
)

var (
	ErrSnapshotTruncated     = errors.New("snapshot truncated")
	ErrSnapshotTrailingBytes = errors.New("snapshot has trailing bytes")
	ErrNegativeActorCount    = errors.New("snapshot actor count is negative")
	ErrInputSize             = errors.New("input command has wrong size")
)

// WorldSnapshot is the replicated state after a tick.
type WorldSnapshot struct {
	Tick   int32        `json:"tick"`
	Actors []ActorState `json:"actors"`
}

// EncodeSnapshot serializes s.
func EncodeSnapshot(s WorldSnapshot) []byte {
	return AppendSnapshot(make([]byte, 0, SnapshotHeaderSize+len(s.Actors)*ActorRecordSize), s)
}

// AppendSnapshot appends the encoding of s to dst.
func AppendSnapshot(dst []byte, s WorldSnapshot) []byte {
	le := binary.LittleEndian
	dst = le.AppendUint32(dst, uint32(s.Tick))
	dst = le.AppendUint32(dst, uint32(int32(len(s.Actors))))
	for _, a := range s.Actors {
		dst = le.AppendUint32(dst, uint32(a.ID))
		dst = le.AppendUint32(dst, math.Float32bits(a.Pos.X))
		dst = le.AppendUint32(dst, math.Float32bits(a.Pos.Y))
		dst = le.AppendUint32(dst, math.Float32bits(a.Vel.X))
		dst = le.AppendUint32(dst, math.Float32bits(a.Vel.Y))
		dst = le.AppendUint16(dst, uint16(a.HP))
		dst = append(dst, byte(a.Type), byte(a.Team))
		dst = le.AppendUint32(dst, math.Float32bits(a.Radius))
		dst = append(dst, boolByte(a.Alive))
	}
	return dst
}

// DecodeSnapshot parses an encoded snapshot. The input must contain
// exactly one snapshot.
func DecodeSnapshot(b []byte) (WorldSnapshot, error) {
	if len(b) < SnapshotHeaderSize {
		return WorldSnapshot{}, fmt.Errorf("decode header (%d bytes): %w", len(b), ErrSnapshotTruncated)
	}
	le := binary.LittleEndian
	s := WorldSnapshot{Tick: int32(le.Uint32(b[0:4]))}
	count := int32(le.Uint32(b[4:8]))
	if count < 0 {
		return WorldSnapshot{}, fmt.Errorf("decode header (count %d): %w", count, ErrNegativeActorCount)
	}

	body := b[SnapshotHeaderSize:]
	want := int64(count) * ActorRecordSize
	if int64(len(body)) < want {
		return WorldSnapshot{}, fmt.Errorf("decode %d actors (%d of %d bytes): %w", count, len(body), want, ErrSnapshotTruncated)
	}
	if int64(len(body)) > want {
		return WorldSnapshot{}, fmt.Errorf("decode %d actors (%d extra bytes): %w", count, int64(len(body))-want, ErrSnapshotTrailingBytes)
	}

	if count == 0 {
		return s, nil
	}
	s.Actors = make([]ActorState, count)
	for i := range s.Actors {
		r := body[i*ActorRecordSize : (i+1)*ActorRecordSize]
		s.Actors[i] = ActorState{
			ID:     int32(le.Uint32(r[0:4])),
			Pos:    spatial.V(math.Float32frombits(le.Uint32(r[4:8])), math.Float32frombits(le.Uint32(r[8:12]))),
			Vel:    spatial.V(math.Float32frombits(le.Uint32(r[12:16])), math.Float32frombits(le.Uint32(r[16:20]))),
			HP:     int16(le.Uint16(r[20:22])),
			Type:   ActorType(r[22]),
			Team:   Team(r[23]),
			Radius: math.Float32frombits(le.Uint32(r[24:28])),
			Alive:  r[28] != 0,
		}
	}
	return s, nil
}

// EncodeInput serializes an input command.
func EncodeInput(c InputCommand) []byte {
	le := binary.LittleEndian
	b := make([]byte, 0, InputCommandSize)
	b = le.AppendUint32(b, uint32(c.Tick))
	b = le.AppendUint32(b, math.Float32bits(c.Move.X))
	b = le.AppendUint32(b, math.Float32bits(c.Move.Y))
	b = le.AppendUint32(b, math.Float32bits(c.Aim.X))
	b = le.AppendUint32(b, math.Float32bits(c.Aim.Y))
	return append(b, c.Buttons)
}

// DecodeInput parses an input command. NaN and infinite components are
// zeroed so hostile input cannot poison actor state.
func DecodeInput(b []byte) (InputCommand, error) {
	if len(b) != InputCommandSize {
		return InputCommand{}, fmt.Errorf("decode input (%d bytes): %w", len(b), ErrInputSize)
	}
	le := binary.LittleEndian
	f := func(off int) float32 {
		v := math.Float32frombits(le.Uint32(b[off : off+4]))
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return 0
		}
		return v
	}
	return InputCommand{
		Tick:    int32(le.Uint32(b[0:4])),
		Move:    spatial.V(f(4), f(8)),
		Aim:     spatial.V(f(12), f(16)),
		Buttons: b[20],
	}, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
