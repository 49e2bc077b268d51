package save

import (
	"encoding/binary"
	"errors"
	"log/slog"
	"math"

	"github.com/pannpers/go-apperr/apperr/codes"

	"github.com/liverty-music/backend/internal/apperrx"
	"github.com/liverty-music/backend/internal/entity"
)

// errShortRead signals that fewer bytes remain than a varint or
// length-prefixed field requires; always wrapped by its caller.
var errShortRead = errors.New("save: short read")

// recordPayloadSize is the fixed size of one packed record: u32 score +
// f32 acc + u8 flags (spec.md §4.2.5).
const recordPayloadSize = 4 + 4 + 1

// decodeGameRecord parses the decrypted gameRecord bytes into a
// songId → [4]*Record map (spec.md §4.2.5): a sequence of
// (songId: length-prefixed UTF-8, payload_len: varint, payload) tuples,
// each payload a difficulty bitmap followed by packed records for the
// difficulties present.
//
// A payload whose indicated structure does not fit its declared length
// is skipped without an error: that song is left out of the result and
// parsing continues (spec.md §4.2.5: "the overall parse does not fail").
func decodeGameRecord(data []byte) (map[string][4]*entity.Record, error) {
	out := make(map[string][4]*entity.Record)

	r := data
	for len(r) > 0 {
		songID, rest, err := readLengthPrefixedString(r)
		if err != nil {
			// A malformed song-id length prefix corrupts the stream's
			// framing: there is no way to locate the next tuple, so this
			// one error does fail the overall parse.
			return out, apperrx.Wrap(err, codes.FailedPrecondition, "Metadata", "malformed gameRecord song id framing")
		}

		payloadLen, rest, err := readUvarint(rest)
		if err != nil {
			return out, apperrx.Wrap(err, codes.FailedPrecondition, "Metadata", "malformed gameRecord payload length", slog.String("songId", songID))
		}
		if uint64(len(rest)) < payloadLen {
			return out, apperrx.New(codes.FailedPrecondition, "Metadata", "gameRecord payload shorter than declared length", slog.String("songId", songID))
		}

		payload := rest[:payloadLen]
		r = rest[payloadLen:]

		records, ok := decodePayload(payload)
		if !ok {
			// This song's payload is internally inconsistent; skip just
			// this song and keep decoding the rest of the stream.
			continue
		}
		out[songID] = records
	}

	return out, nil
}

// decodePayload parses one song's payload: a difficulty bitmap byte
// followed by a packed record per set bit, in Difficulties order.
func decodePayload(payload []byte) ([4]*entity.Record, bool) {
	var out [4]*entity.Record
	if len(payload) < 1 {
		return out, false
	}

	bitmap := payload[0]
	r := payload[1:]

	for _, d := range entity.Difficulties {
		if bitmap&(1<<uint(d)) == 0 {
			continue
		}
		if len(r) < recordPayloadSize {
			return out, false
		}
		score := binary.LittleEndian.Uint32(r[0:4])
		accBits := binary.LittleEndian.Uint32(r[4:8])
		flags := r[8]
		r = r[recordPayloadSize:]

		out[d] = &entity.Record{
			Difficulty: d,
			Score:      int32(score),
			Acc:        float64(math.Float32frombits(accBits)),
			IsFC:       flags&0x1 != 0,
			IsPhi:      flags&0x2 != 0,
		}
	}
	// Unknown/trailing bytes in r are ignored per spec.md §4.2.5.
	return out, true
}

// readLengthPrefixedString reads a uvarint length followed by that many
// UTF-8 bytes.
func readLengthPrefixedString(r []byte) (string, []byte, error) {
	n, rest, err := readUvarint(r)
	if err != nil {
		return "", nil, err
	}
	if uint64(len(rest)) < n {
		return "", nil, errShortRead
	}
	return string(rest[:n]), rest[n:], nil
}

func readUvarint(r []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(r)
	if n <= 0 {
		return 0, nil, errShortRead
	}
	return v, r[n:], nil
}
