package dvid

import (
	"bytes"

	. "github.com/janelia-flyem/go/gocheck"
)

func (suite *DataSuite) TestSerialization(c *C) {
	data := bytes.Repeat([]byte("voxel terrain block data "), 100)
	data = append(data, 0x33, 0x18, 0xD0, 0x92, 0x01)

	for _, compression := range []Compression{Uncompressed, Snappy, Zstd} {
		for _, checksum := range []Checksum{NoChecksum, CRC32} {
			s, err := SerializeData(data, compression, checksum)
			c.Assert(err, IsNil)
			if len(s) == 0 {
				c.Errorf("Bad SerializeData() - output length 0")
			}

			out, compress, err := DeserializeData(s, true)
			c.Assert(err, IsNil)
			c.Assert(compress, Equals, compression)
			c.Assert(bytes.Equal(out, data), Equals, true)

			if checksum != NoChecksum {
				s[len(s)-1] = s[len(s)-1] ^ 0x04 // Flip a bit
				_, _, err = DeserializeData(s, true)
				c.Assert(err, NotNil)
			}
		}
	}
}

func (suite *DataSuite) TestSerializationFormat(c *C) {
	f := EncodeSerializationFormat(Zstd, CRC32)
	compress, checksum := DecodeSerializationFormat(f)
	c.Assert(compress, Equals, Zstd)
	c.Assert(checksum, Equals, CRC32)

	_, _, err := DeserializeData(nil, true)
	c.Assert(err, NotNil)
}

func (suite *DataSuite) TestSerializationNames(c *C) {
	compress, err := CompressionFromString("ZSTD")
	c.Assert(err, IsNil)
	c.Assert(compress, Equals, Zstd)
	compress, err = CompressionFromString("none")
	c.Assert(err, IsNil)
	c.Assert(compress, Equals, Uncompressed)
	_, err = CompressionFromString("gzip")
	c.Assert(err, NotNil)

	checksum, err := ChecksumFromString("crc32")
	c.Assert(err, IsNil)
	c.Assert(checksum, Equals, CRC32)
	_, err = ChecksumFromString("md5")
	c.Assert(err, NotNil)
}

func (suite *DataSuite) TestBox3d(c *C) {
	b := BoxFromMinMax(Point3d{4, 5, 6}, Point3d{1, 2, 3})
	c.Assert(b.Pos, Equals, Point3d{1, 2, 3})
	c.Assert(b.Size, Equals, Point3d{3, 3, 3})
	c.Assert(b.Volume(), Equals, int64(27))

	inner := Box3d{Point3d{2, 3, 4}, Point3d{2, 2, 2}}
	c.Assert(b.Encloses(inner), Equals, true)
	c.Assert(inner.Encloses(b), Equals, false)

	c.Assert(b.Encloses(Box3d{Point3d{2, 2, 2}, Point3d{2, 2, 2}}), Equals, false)

	far := Box3d{Point3d{10, 10, 10}, Point3d{1, 1, 1}}
	c.Assert(b.Intersects(far), Equals, false)
	c.Assert(b.Clipped(far).IsEmpty(), Equals, true)

	var n int
	b.ForEachCell(func(p Point3d) { n++ })
	c.Assert(n, Equals, 27)

	var outline int
	b.ForInnerOutline(func(p Point3d) { outline++ })
	c.Assert(outline, Equals, 26)

	c.Assert(b.Padded(1).Size, Equals, Point3d{5, 5, 5})
	c.Assert(Box3d{Point3d{-1, 0, 15}, Point3d{2, 16, 2}}.Downscaled(4), Equals,
		Box3d{Point3d{-1, 0, 0}, Point3d{2, 1, 2}})
}
