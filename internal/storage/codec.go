package storage

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"tilestream/internal/world"
)

const (
	chunkFormat  = "tilestream-chunk"
	chunkVersion = 1
)

var ErrUnsupportedFormat = errors.New("unsupported chunk format")

// chunkHeader is the JSON line in front of every encoded chunk. It can be
// read without decoding the body.
type chunkHeader struct {
	Format   string      `json:"format"`
	Version  int         `json:"version"`
	Position world.Vec3i `json:"position"`
	Size     world.Vec3i `json:"size"`
}

type chunkBody struct {
	Cells     []world.Cell
	HeightMap []int
}

// encodeChunk writes c as a zstd stream holding a JSON header line and a
// gob body.
func encodeChunk(w io.Writer, c *world.Chunk) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)

	hb, err := json.Marshal(chunkHeader{
		Format:   chunkFormat,
		Version:  chunkVersion,
		Position: c.Position,
		Size:     c.Size,
	})
	if err != nil {
		enc.Close()
		return err
	}
	hb = append(hb, '\n')
	if _, err := bw.Write(hb); err != nil {
		enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(chunkBody{Cells: c.Cells, HeightMap: c.HeightMap}); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// decodeChunk reads an encoded chunk into c, whose Position and Size must
// already be set. c is only modified when the payload is valid.
func decodeChunk(r io.Reader, c *world.Chunk) error {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	line, err := br.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("read chunk header: %w", err)
	}
	var h chunkHeader
	if err := json.Unmarshal(line, &h); err != nil {
		return fmt.Errorf("parse chunk header: %w", err)
	}
	if h.Format != chunkFormat || h.Version != chunkVersion {
		return fmt.Errorf("%w: %q v%d", ErrUnsupportedFormat, h.Format, h.Version)
	}
	if h.Position != c.Position {
		return fmt.Errorf("chunk header position %v, want %v", h.Position, c.Position)
	}

	var body chunkBody
	if err := gob.NewDecoder(br).Decode(&body); err != nil {
		return fmt.Errorf("gob decode: %w", err)
	}
	if want := c.Size.X * c.Size.Y; len(body.HeightMap) != want {
		return fmt.Errorf("%w: %d columns, want %d", world.ErrHeightMapMismatch, len(body.HeightMap), want)
	}
	if want := c.Size.Volume(); len(body.Cells) != want {
		return fmt.Errorf("%w: %d cells, want %d", world.ErrCellCountMismatch, len(body.Cells), want)
	}
	c.Cells = body.Cells
	c.HeightMap = body.HeightMap
	return nil
}
