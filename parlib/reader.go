package parlib

import (
	"fmt"

	"github.com/brant-lang/brant/internal/format"
)

// ReadHeader decodes and validates the file header.
func ReadHeader(data []byte) (HeaderInfo, error) {
	if len(data) < format.HdrFixedSize {
		return HeaderInfo{}, format.ErrTruncated
	}

	h := HeaderInfo{
		FormatMajor:     format.ReadU16(data, format.HdrFormatMajorOffset),
		FormatMinor:     format.ReadU16(data, format.HdrFormatMinorOffset),
		Flags:           format.ReadU32(data, format.HdrFlagsOffset),
		FeatureBits:     format.ReadU64(data, format.HdrFeatureBitsOffset),
		TocOffset:       format.ReadU64(data, format.HdrTocOffsetOffset),
		TocEntrySize:    format.ReadU32(data, format.HdrTocEntrySizeOffset),
		TocEntryCount:   format.ReadU32(data, format.HdrTocEntryCountOffset),
		ChunkDataOffset: format.ReadU64(data, format.HdrChunkDataOffset),
		FileSize:        format.ReadU64(data, format.HdrFileSizeOffset),
	}

	if h.FormatMajor != format.FormatMajor {
		return HeaderInfo{}, format.ErrBadVersion
	}
	if h.TocEntrySize != format.TocEntrySize {
		return HeaderInfo{}, fmt.Errorf("parlib: unexpected toc entry size %d", h.TocEntrySize)
	}
	if h.FileSize != uint64(len(data)) {
		return HeaderInfo{}, fmt.Errorf("parlib: header file size %d, have %d bytes", h.FileSize, len(data))
	}

	tripleLen := format.ReadU32(data, format.HdrTripleLenOffset)
	if tripleLen > format.MaxTripleLen {
		return HeaderInfo{}, format.ErrSanityLimit
	}
	end := uint64(format.HdrFixedSize) + uint64(tripleLen)
	if end > uint64(len(data)) {
		return HeaderInfo{}, format.ErrTruncated
	}
	h.TargetTriple = string(data[format.HdrFixedSize:end])

	return h, nil
}

// ReadTOC decodes every TOC entry.
func ReadTOC(data []byte, h HeaderInfo) ([]ChunkRecord, error) {
	need := h.TocOffset + uint64(h.TocEntryCount)*uint64(h.TocEntrySize)
	if need > uint64(len(data)) {
		return nil, format.ErrTruncated
	}

	out := make([]ChunkRecord, 0, h.TocEntryCount)
	for i := uint32(0); i < h.TocEntryCount; i++ {
		off := int(h.TocOffset) + int(i)*format.TocEntrySize
		rec := ChunkRecord{
			Kind:         ChunkKind(format.ReadU16(data, off+format.TocKindOffset)),
			Lane:         Lane(format.ReadU16(data, off+format.TocLaneOffset)),
			Alignment:    format.ReadU32(data, off+format.TocAlignmentOffset),
			Compression:  Compression(format.ReadU16(data, off+format.TocCompressionOffset)),
			Offset:       format.ReadU64(data, off+format.TocChunkOffsetOffset),
			Size:         format.ReadU64(data, off+format.TocChunkSizeOffset),
			Checksum:     format.ReadU64(data, off+format.TocChecksumOffset),
			ContentHash:  format.ReadU64(data, off+format.TocContentHashOffset),
			Deduplicated: data[off+format.TocDeduplicatedOffset] != 0,
		}
		out = append(out, rec)
	}
	return out, nil
}

// ChunkBytes returns one chunk's payload slice.
func ChunkBytes(data []byte, rec ChunkRecord) ([]byte, error) {
	end := rec.Offset + rec.Size
	if end > uint64(len(data)) {
		return nil, format.ErrTruncated
	}
	return data[rec.Offset:end], nil
}

// InspectResult is the outcome of a full integrity pass.
type InspectResult struct {
	OK     bool
	Header HeaderInfo
	Chunks []ChunkRecord
	Issues []string
}

// Inspect reads the archive and checks every invariant: version,
// alignment of each chunk, compression, checksum, and dedup hash
// consistency.
func Inspect(data []byte) InspectResult {
	var res InspectResult

	h, err := ReadHeader(data)
	if err != nil {
		res.Issues = append(res.Issues, err.Error())
		return res
	}
	res.Header = h

	recs, err := ReadTOC(data, h)
	if err != nil {
		res.Issues = append(res.Issues, err.Error())
		return res
	}
	res.Chunks = recs

	byHash := make(map[uint64]uint64) // content hash -> first offset

	for i, rec := range recs {
		if rec.Compression != CompressionNone {
			res.Issues = append(res.Issues,
				fmt.Sprintf("chunk #%d: %v", i, format.ErrBadCompression))
			continue
		}
		if rec.Alignment != 0 && rec.Offset%uint64(rec.Alignment) != 0 {
			res.Issues = append(res.Issues,
				fmt.Sprintf("chunk #%d: %v (offset %d, alignment %d)",
					i, format.ErrBadAlignment, rec.Offset, rec.Alignment))
		}

		payload, err := ChunkBytes(data, rec)
		if err != nil {
			res.Issues = append(res.Issues, fmt.Sprintf("chunk #%d: %v", i, err))
			continue
		}
		if format.Checksum64(payload) != rec.Checksum {
			res.Issues = append(res.Issues,
				fmt.Sprintf("chunk #%d: %v", i, format.ErrChecksum))
		}
		if format.ContentHash64(payload) != rec.ContentHash {
			res.Issues = append(res.Issues,
				fmt.Sprintf("chunk #%d: content hash mismatch", i))
		}

		if first, ok := byHash[rec.ContentHash]; ok {
			if rec.Deduplicated && rec.Offset != first {
				res.Issues = append(res.Issues,
					fmt.Sprintf("chunk #%d: deduplicated but offset differs from first copy", i))
			}
		} else {
			byHash[rec.ContentHash] = rec.Offset
		}
	}

	res.OK = len(res.Issues) == 0
	return res
}
