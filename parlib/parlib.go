// Package parlib implements the v1 library-archive container: a fixed
// header, a table of contents with 48-byte entries, and aligned,
// checksummed chunk payloads grouped into lanes. Identical payloads are
// deduplicated by content hash. v1 supports no compression.
package parlib

import (
	"fmt"

	"github.com/brant-lang/brant/internal/format"
)

// ChunkKind identifies a chunk's content class.
type ChunkKind uint16

const (
	ChunkManifest      ChunkKind = 1
	ChunkStringTable   ChunkKind = 2
	ChunkSymbolIndex   ChunkKind = 3
	ChunkTypeMeta      ChunkKind = 4
	ChunkOirArchive    ChunkKind = 5
	ChunkObjectArchive ChunkKind = 6
	ChunkDebug         ChunkKind = 7
	ChunkReserved      ChunkKind = 0x7FFF
)

func (k ChunkKind) String() string {
	switch k {
	case ChunkManifest:
		return "manifest"
	case ChunkStringTable:
		return "string_table"
	case ChunkSymbolIndex:
		return "symbol_index"
	case ChunkTypeMeta:
		return "type_meta"
	case ChunkOirArchive:
		return "oir_archive"
	case ChunkObjectArchive:
		return "object_archive"
	case ChunkDebug:
		return "debug"
	case ChunkReserved:
		return "reserved"
	}
	return "unknown"
}

// Lane groups chunks by provenance.
type Lane uint16

const (
	LaneGlobal      Lane = 0
	LanePcore       Lane = 1
	LanePrt         Lane = 2
	LanePstd        Lane = 3
	LaneVendorBegin Lane = 0x8000
)

func (l Lane) String() string {
	switch l {
	case LaneGlobal:
		return "global"
	case LanePcore:
		return "pcore"
	case LanePrt:
		return "prt"
	case LanePstd:
		return "pstd"
	}
	if l >= LaneVendorBegin {
		return fmt.Sprintf("vendor+%d", uint16(l-LaneVendorBegin))
	}
	return "unknown"
}

// Compression identifies the chunk encoding; v1 only writes None.
type Compression uint16

const (
	CompressionNone Compression = 0
)

// ChunkPayload is one chunk to be written.
type ChunkPayload struct {
	Kind        ChunkKind
	Lane        Lane
	Alignment   uint32
	Compression Compression
	Bytes       []byte
}

// HeaderInfo is the decoded file header.
type HeaderInfo struct {
	FormatMajor  uint16
	FormatMinor  uint16
	Flags        uint32
	FeatureBits  uint64
	TargetTriple string

	TocOffset       uint64
	TocEntrySize    uint32
	TocEntryCount   uint32
	ChunkDataOffset uint64
	FileSize        uint64
}

// ChunkRecord is one decoded TOC entry.
type ChunkRecord struct {
	Kind        ChunkKind
	Lane        Lane
	Alignment   uint32
	Compression Compression

	Offset       uint64
	Size         uint64
	Checksum     uint64
	ContentHash  uint64
	Deduplicated bool
}

// BuildOptions configures archive construction.
type BuildOptions struct {
	TargetTriple string
	FeatureBits  uint64
	Flags        uint32

	Chunks []ChunkPayload
}

// BuildResult is the outcome of Build.
type BuildResult struct {
	Bytes  []byte
	Header HeaderInfo
	Chunks []ChunkRecord
}

// Build lays out a v1 archive: header, TOC, then aligned chunk data.
// Chunks with identical content hash and size share storage; later
// copies are flagged deduplicated.
func Build(opt BuildOptions) (BuildResult, error) {
	if len(opt.TargetTriple) > format.MaxTripleLen {
		return BuildResult{}, format.ErrSanityLimit
	}
	for _, c := range opt.Chunks {
		if c.Compression != CompressionNone {
			return BuildResult{}, format.ErrBadCompression
		}
	}

	headerSize := uint64(format.HdrFixedSize + len(opt.TargetTriple))
	tocOffset := format.AlignUp(headerSize, format.DefaultChunkAlignment)
	tocSize := uint64(len(opt.Chunks)) * format.TocEntrySize
	chunkDataOffset := format.AlignUp(tocOffset+tocSize, format.DefaultChunkAlignment)

	// lay out payloads with dedup by (content hash, size)
	type placed struct {
		offset uint64
	}
	type dedupKey struct {
		hash, size uint64
	}
	records := make([]ChunkRecord, 0, len(opt.Chunks))
	seen := make(map[dedupKey]placed)

	cursor := chunkDataOffset
	var data []byte // chunk payload area, relative to chunkDataOffset

	for _, c := range opt.Chunks {
		align := uint64(c.Alignment)
		if align == 0 {
			align = format.DefaultChunkAlignment
		}
		hash := format.ContentHash64(c.Bytes)
		sum := format.Checksum64(c.Bytes)

		rec := ChunkRecord{
			Kind:        c.Kind,
			Lane:        c.Lane,
			Alignment:   uint32(align),
			Compression: c.Compression,
			Size:        uint64(len(c.Bytes)),
			Checksum:    sum,
			ContentHash: hash,
		}

		key := dedupKey{hash: hash, size: uint64(len(c.Bytes))}
		if prior, ok := seen[key]; ok {
			rec.Offset = prior.offset
			rec.Deduplicated = true
			records = append(records, rec)
			continue
		}

		offset := format.AlignUp(cursor, align)
		pad := offset - cursor
		data = append(data, make([]byte, pad)...)
		data = append(data, c.Bytes...)
		cursor = offset + uint64(len(c.Bytes))

		rec.Offset = offset
		seen[key] = placed{offset: offset}
		records = append(records, rec)
	}

	fileSize := cursor

	out := make([]byte, fileSize)

	// header
	format.PutU16(out, format.HdrFormatMajorOffset, format.FormatMajor)
	format.PutU16(out, format.HdrFormatMinorOffset, format.FormatMinor)
	format.PutU32(out, format.HdrFlagsOffset, opt.Flags)
	format.PutU64(out, format.HdrFeatureBitsOffset, opt.FeatureBits)
	format.PutU64(out, format.HdrTocOffsetOffset, tocOffset)
	format.PutU32(out, format.HdrTocEntrySizeOffset, format.TocEntrySize)
	format.PutU32(out, format.HdrTocEntryCountOffset, uint32(len(records)))
	format.PutU64(out, format.HdrChunkDataOffset, chunkDataOffset)
	format.PutU64(out, format.HdrFileSizeOffset, fileSize)
	format.PutU32(out, format.HdrTripleLenOffset, uint32(len(opt.TargetTriple)))
	copy(out[format.HdrFixedSize:], opt.TargetTriple)

	// TOC
	for i, rec := range records {
		off := int(tocOffset) + i*format.TocEntrySize
		format.PutU16(out, off+format.TocKindOffset, uint16(rec.Kind))
		format.PutU16(out, off+format.TocLaneOffset, uint16(rec.Lane))
		format.PutU32(out, off+format.TocAlignmentOffset, rec.Alignment)
		format.PutU16(out, off+format.TocCompressionOffset, uint16(rec.Compression))
		format.PutU16(out, off+format.TocReservedOffset, 0)
		format.PutU64(out, off+format.TocChunkOffsetOffset, rec.Offset)
		format.PutU64(out, off+format.TocChunkSizeOffset, rec.Size)
		format.PutU64(out, off+format.TocChecksumOffset, rec.Checksum)
		format.PutU64(out, off+format.TocContentHashOffset, rec.ContentHash)
		if rec.Deduplicated {
			out[off+format.TocDeduplicatedOffset] = 1
		}
	}

	// chunk data
	copy(out[chunkDataOffset:], data)

	header := HeaderInfo{
		FormatMajor:     format.FormatMajor,
		FormatMinor:     format.FormatMinor,
		Flags:           opt.Flags,
		FeatureBits:     opt.FeatureBits,
		TargetTriple:    opt.TargetTriple,
		TocOffset:       tocOffset,
		TocEntrySize:    format.TocEntrySize,
		TocEntryCount:   uint32(len(records)),
		ChunkDataOffset: chunkDataOffset,
		FileSize:        fileSize,
	}
	return BuildResult{Bytes: out, Header: header, Chunks: records}, nil
}
