// Package format houses the low-level byte layout of the parlib library
// archive: header and TOC field offsets plus little-endian accessors.
// The goal is to keep the byte-level parsing focused and independent
// from the public API, so the parlib package can orchestrate the data in
// a more ergonomic form.
package format

const (
	// FormatMajor / FormatMinor identify archive format v1.0.
	FormatMajor = 1
	FormatMinor = 0

	// Header field offsets. The header is fixed-size up to the
	// target-triple length field; the triple bytes follow immediately.
	//
	//   0x00  format_major      u16
	//   0x02  format_minor      u16
	//   0x04  flags             u32
	//   0x08  feature_bits      u64
	//   0x10  toc_offset        u64
	//   0x18  toc_entry_size    u32
	//   0x1C  toc_entry_count   u32
	//   0x20  chunk_data_offset u64
	//   0x28  file_size         u64
	//   0x30  triple_len        u32
	//   0x34  triple bytes ...
	HdrFormatMajorOffset    = 0x00
	HdrFormatMinorOffset    = 0x02
	HdrFlagsOffset          = 0x04
	HdrFeatureBitsOffset    = 0x08
	HdrTocOffsetOffset      = 0x10
	HdrTocEntrySizeOffset   = 0x18
	HdrTocEntryCountOffset  = 0x1C
	HdrChunkDataOffset      = 0x20
	HdrFileSizeOffset       = 0x28
	HdrTripleLenOffset      = 0x30
	HdrFixedSize            = 0x34

	// TOC entries are exactly 48 bytes:
	//
	//   0x00  kind         u16
	//   0x02  lane         u16
	//   0x04  alignment    u32
	//   0x08  compression  u16
	//   0x0A  reserved     u16
	//   0x0C  offset       u64
	//   0x14  size         u64
	//   0x1C  checksum     u64
	//   0x24  content_hash u64
	//   0x2C  deduplicated u8
	//   0x2D  pad[3]
	TocEntrySize          = 48
	TocKindOffset         = 0x00
	TocLaneOffset         = 0x02
	TocAlignmentOffset    = 0x04
	TocCompressionOffset  = 0x08
	TocReservedOffset     = 0x0A
	TocChunkOffsetOffset  = 0x0C
	TocChunkSizeOffset    = 0x14
	TocChecksumOffset     = 0x1C
	TocContentHashOffset  = 0x24
	TocDeduplicatedOffset = 0x2C

	// DefaultChunkAlignment keeps chunk payloads 8-byte aligned.
	DefaultChunkAlignment = 8

	// MaxTripleLen bounds the target-triple field against corrupt sizes.
	MaxTripleLen = 256
)
