package parlib

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brant-lang/brant/internal/format"
)

func buildSample(t *testing.T) BuildResult {
	t.Helper()
	res, err := Build(BuildOptions{
		TargetTriple: "x86_64-unknown-linux-gnu",
		FeatureBits:  0x3,
		Flags:        0x1,
		Chunks: []ChunkPayload{
			{Kind: ChunkManifest, Lane: LaneGlobal, Bytes: []byte("manifest-v1")},
			{Kind: ChunkStringTable, Lane: LanePcore, Alignment: 16, Bytes: []byte("strings")},
			{Kind: ChunkOirArchive, Lane: LanePstd, Bytes: []byte("oir-blob-data")},
		},
	})
	require.NoError(t, err)
	return res
}

func TestBuild_HeaderFields(t *testing.T) {
	res := buildSample(t)

	h := res.Header
	require.Equal(t, uint16(1), h.FormatMajor)
	require.Equal(t, uint16(0), h.FormatMinor)
	require.Equal(t, "x86_64-unknown-linux-gnu", h.TargetTriple)
	require.Equal(t, uint32(3), h.TocEntryCount)
	require.Equal(t, uint32(format.TocEntrySize), h.TocEntrySize)
	require.Equal(t, uint64(len(res.Bytes)), h.FileSize)
	require.Greater(t, h.ChunkDataOffset, h.TocOffset)
}

func TestRoundTrip_HeaderAndTOC(t *testing.T) {
	res := buildSample(t)

	h, err := ReadHeader(res.Bytes)
	require.NoError(t, err)
	require.Equal(t, res.Header, h)

	recs, err := ReadTOC(res.Bytes, h)
	require.NoError(t, err)
	require.Equal(t, res.Chunks, recs)

	payload, err := ChunkBytes(res.Bytes, recs[0])
	require.NoError(t, err)
	require.Equal(t, []byte("manifest-v1"), payload)
}

func TestBuild_AlignmentInvariant(t *testing.T) {
	res := buildSample(t)
	for _, rec := range res.Chunks {
		require.Zero(t, rec.Offset%uint64(rec.Alignment),
			"chunk kind %s offset %d alignment %d", rec.Kind, rec.Offset, rec.Alignment)
	}
	// explicit 16-byte alignment request is honored
	require.Equal(t, uint32(16), res.Chunks[1].Alignment)
}

func TestBuild_Dedup(t *testing.T) {
	blob := []byte("identical-payload")
	res, err := Build(BuildOptions{
		TargetTriple: "t",
		Chunks: []ChunkPayload{
			{Kind: ChunkDebug, Lane: LaneGlobal, Bytes: blob},
			{Kind: ChunkDebug, Lane: LanePrt, Bytes: blob},
		},
	})
	require.NoError(t, err)

	require.False(t, res.Chunks[0].Deduplicated)
	require.True(t, res.Chunks[1].Deduplicated)
	require.Equal(t, res.Chunks[0].Offset, res.Chunks[1].Offset)
	require.Equal(t, res.Chunks[0].ContentHash, res.Chunks[1].ContentHash)
}

func TestBuild_RejectsCompression(t *testing.T) {
	_, err := Build(BuildOptions{
		Chunks: []ChunkPayload{{Kind: ChunkDebug, Compression: Compression(2), Bytes: []byte("x")}},
	})
	require.ErrorIs(t, err, format.ErrBadCompression)
}

func TestInspect_CleanArchive(t *testing.T) {
	res := buildSample(t)
	ins := Inspect(res.Bytes)
	require.True(t, ins.OK, "issues: %v", ins.Issues)
	require.Len(t, ins.Chunks, 3)
}

func TestInspect_DetectsCorruption(t *testing.T) {
	res := buildSample(t)

	// flip one payload byte
	corrupt := append([]byte(nil), res.Bytes...)
	corrupt[res.Chunks[0].Offset] ^= 0xFF

	ins := Inspect(corrupt)
	require.False(t, ins.OK)
	require.NotEmpty(t, ins.Issues)
}

func TestInspect_TruncatedFile(t *testing.T) {
	res := buildSample(t)
	ins := Inspect(res.Bytes[:10])
	require.False(t, ins.OK)
}

func TestReadHeader_BadVersion(t *testing.T) {
	res := buildSample(t)
	bad := append([]byte(nil), res.Bytes...)
	format.PutU16(bad, format.HdrFormatMajorOffset, 9)
	_, err := ReadHeader(bad)
	require.ErrorIs(t, err, format.ErrBadVersion)
}

func TestLaneAndKindNames(t *testing.T) {
	require.Equal(t, "pcore", LanePcore.String())
	require.Equal(t, "vendor+2", (LaneVendorBegin + 2).String())
	require.Equal(t, "oir_archive", ChunkOirArchive.String())
}
