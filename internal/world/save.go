package world

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// MapFormatVersion is the header written by Save. Version 1 streams lack the
// per-cell road mask.
const MapFormatVersion = 2

const (
	flagExplored   = 1 << 0
	flagExplorable = 1 << 1
)

// cellRecord is the fixed part of a cell on disk.
type cellRecord struct {
	Elevation  int8
	WaterLevel int8
	Terrain    uint8
	Flags      uint8
}

// Save writes every cell in index order. Map dimensions are not part of the
// stream; the reader must call CreateMap with the same size before Load.
func (g *Grid) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, int32(MapFormatVersion)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range g.cells {
		c := &g.cells[i]
		if !fitsInt8(c.elevation) || !fitsInt8(c.waterLevel) {
			return fmt.Errorf("cell %s: elevation %d / water %d out of range", c.coordinates, c.elevation, c.waterLevel)
		}
		rec := cellRecord{
			Elevation:  int8(c.elevation),
			WaterLevel: int8(c.waterLevel),
			Terrain:    uint8(c.terrain),
		}
		if c.explored {
			rec.Flags |= flagExplored
		}
		if c.explorable {
			rec.Flags |= flagExplorable
		}
		if err := binary.Write(bw, binary.LittleEndian, rec); err != nil {
			return fmt.Errorf("write cell %d: %w", i, err)
		}
		if err := bw.WriteByte(c.roads); err != nil {
			return fmt.Errorf("write cell %d roads: %w", i, err)
		}
	}
	return bw.Flush()
}

// Load reads cells written by Save into the current map. Explored flags are
// kept; visibility counters, units and the current path are reset.
func (g *Grid) Load(r io.Reader) error {
	br := bufio.NewReader(r)
	var header int32
	if err := binary.Read(br, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if header < 1 || header > MapFormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, header)
	}

	// Decode into a scratch slice first so a short stream leaves the map
	// untouched.
	recs := make([]cellRecord, len(g.cells))
	roads := make([]uint8, len(g.cells))
	for i := range recs {
		if err := binary.Read(br, binary.LittleEndian, &recs[i]); err != nil {
			return fmt.Errorf("read cell %d: %w", i, err)
		}
		if header >= 2 {
			b, err := br.ReadByte()
			if err != nil {
				return fmt.Errorf("read cell %d roads: %w", i, err)
			}
			roads[i] = b & 0x3f
		}
	}

	g.ClearPath()
	g.clearUnits()
	g.ResetVisibility()
	for i, rec := range recs {
		c := &g.cells[i]
		c.elevation = int(rec.Elevation)
		c.waterLevel = int(rec.WaterLevel)
		c.terrain = Terrain(rec.Terrain)
		c.explored = rec.Flags&flagExplored != 0
		c.explorable = rec.Flags&flagExplorable != 0
		c.roads = roads[i]
		g.markDirty(c.chunkIndex)
	}
	g.log.Info("map loaded", "version", header, "cells", len(recs))
	return nil
}

func fitsInt8(v int) bool {
	return v >= math.MinInt8 && v <= math.MaxInt8
}
