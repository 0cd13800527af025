package mmdb_test

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/9seconds/geoipd/mmdb"
	"github.com/9seconds/geoipd/mmdb/mmdbtest"
)

var usRecord = mmdb.Map{
	{Key: "country", Value: mmdb.Map{
		{Key: "iso_code", Value: mmdb.String("US")},
		{Key: "geoname_id", Value: mmdb.Uint32(6252001)},
	}},
	{Key: "location", Value: mmdb.Map{
		{Key: "latitude", Value: mmdb.Double(37.751)},
		{Key: "longitude", Value: mmdb.Double(-97.822)},
	}},
	{Key: "is_anycast", Value: mmdb.Bool(true)},
	{Key: "subdivisions", Value: mmdb.Array{
		mmdb.Map{{Key: "iso_code", Value: mmdb.String("TX")}},
	}},
}

var gbRecord = mmdb.Map{
	{Key: "country", Value: mmdb.Map{
		{Key: "iso_code", Value: mmdb.String("GB")},
	}},
}

type ReaderTestSuite struct {
	suite.Suite
}

func (suite *ReaderTestSuite) buildReader(builder *mmdbtest.Builder) *mmdb.Reader {
	content, err := builder.Build()
	suite.Require().NoError(err)

	reader, err := mmdb.FromBytes(content)
	suite.Require().NoError(err)

	return reader
}

func (suite *ReaderTestSuite) TestLookupEveryRecordSize() {
	for _, recordSize := range []uint{24, 28, 32} {
		builder := &mmdbtest.Builder{}
		builder.RecordSize = recordSize

		suite.Require().NoError(builder.Add("1.2.3.0/24", usRecord))
		suite.Require().NoError(builder.Add("81.2.69.0/24", gbRecord))

		reader := suite.buildReader(builder)

		value, err := reader.Lookup(net.ParseIP("1.2.3.4"))
		suite.NoError(err)
		suite.Equal(usRecord, value)

		value, err = reader.Lookup(net.ParseIP("81.2.69.142"))
		suite.NoError(err)
		suite.Equal(gbRecord, value)

		value, err = reader.Lookup(net.ParseIP("9.9.9.9"))
		suite.NoError(err)
		suite.Nil(value)
	}
}

func (suite *ReaderTestSuite) TestLookupSingleRouteScenario() {
	// One root node: everything with a zero first address bit goes to
	// the only record, the other half of the space has nothing.
	builder := &mmdbtest.Builder{}

	suite.Require().NoError(builder.Add("0.0.0.0/1",
		mmdb.Map{{Key: "country", Value: mmdb.String("US")}}))

	reader := suite.buildReader(builder)

	value, err := reader.Lookup(net.ParseIP("1.2.3.4"))
	suite.NoError(err)
	suite.Equal(mmdb.Map{{Key: "country", Value: mmdb.String("US")}}, value)

	value, err = reader.Lookup(net.ParseIP("128.0.0.1"))
	suite.NoError(err)
	suite.Nil(value)
}

func (suite *ReaderTestSuite) TestLookupIdempotent() {
	builder := &mmdbtest.Builder{}
	suite.Require().NoError(builder.Add("1.2.3.0/24", usRecord))

	reader := suite.buildReader(builder)

	first, err := reader.Lookup(net.ParseIP("1.2.3.4"))
	suite.NoError(err)

	second, err := reader.Lookup(net.ParseIP("1.2.3.4"))
	suite.NoError(err)
	suite.Equal(first, second)
}

func (suite *ReaderTestSuite) TestPointerTransparency() {
	// usRecord appears twice in the file; the second occurrence is
	// stored as a pointer. Both decode to the same tree.
	builder := &mmdbtest.Builder{}
	suite.Require().NoError(builder.Add("1.2.3.0/24", usRecord))
	suite.Require().NoError(builder.Add("5.6.7.0/24", usRecord))

	reader := suite.buildReader(builder)

	first, err := reader.Lookup(net.ParseIP("1.2.3.4"))
	suite.NoError(err)

	second, err := reader.Lookup(net.ParseIP("5.6.7.8"))
	suite.NoError(err)
	suite.Equal(first, second)
	suite.Equal(usRecord, second)
}

func (suite *ReaderTestSuite) TestIPv4InIPv6Tree() {
	builder := &mmdbtest.Builder{}
	builder.IPVersion = 6

	suite.Require().NoError(builder.Add("81.2.69.0/24", gbRecord))
	suite.Require().NoError(builder.Add("2001:db8::/32", usRecord))

	reader := suite.buildReader(builder)

	value, err := reader.Lookup(net.ParseIP("81.2.69.142"))
	suite.NoError(err)
	suite.Equal(gbRecord, value)

	value, err = reader.Lookup(net.ParseIP("2001:db8::1"))
	suite.NoError(err)
	suite.Equal(usRecord, value)

	value, err = reader.Lookup(net.ParseIP("8.8.8.8"))
	suite.NoError(err)
	suite.Nil(value)
}

func (suite *ReaderTestSuite) TestAddressFamilyMismatch() {
	builder := &mmdbtest.Builder{}
	suite.Require().NoError(builder.Add("1.2.3.0/24", usRecord))

	reader := suite.buildReader(builder)

	_, err := reader.Lookup(net.ParseIP("2001:db8::1"))
	suite.ErrorIs(err, mmdb.ErrAddressFamilyMismatch)
}

func (suite *ReaderTestSuite) TestLookupNilIP() {
	builder := &mmdbtest.Builder{}
	reader := suite.buildReader(builder)

	_, err := reader.Lookup(nil)
	suite.Error(err)
}

func (suite *ReaderTestSuite) TestMetadata() {
	builder := &mmdbtest.Builder{}
	builder.RecordSize = 28
	builder.DatabaseType = "GeoLite2-City"
	builder.Languages = []string{"en", "de"}
	builder.Description = map[string]string{"en": "test database"}

	reader := suite.buildReader(builder)

	suite.EqualValues(28, reader.Metadata.RecordSize)
	suite.EqualValues(4, reader.Metadata.IPVersion)
	suite.Equal("GeoLite2-City", reader.Metadata.DatabaseType)
	suite.Equal([]string{"en", "de"}, reader.Metadata.Languages)
	suite.Equal("test database", reader.Metadata.Description["en"])
	suite.NotZero(reader.Metadata.NodeCount)
	suite.False(reader.Metadata.BuildTime().IsZero())
}

func (suite *ReaderTestSuite) TestOpenFile() {
	builder := &mmdbtest.Builder{}
	suite.Require().NoError(builder.Add("1.2.3.0/24", usRecord))

	content, err := builder.Build()
	suite.Require().NoError(err)

	path := filepath.Join(suite.T().TempDir(), "test.mmdb")
	suite.Require().NoError(os.WriteFile(path, content, 0o644))

	reader, err := mmdb.Open(path)
	suite.Require().NoError(err)

	value, err := reader.Lookup(net.ParseIP("1.2.3.4"))
	suite.NoError(err)
	suite.Equal(usRecord, value)
}

func (suite *ReaderTestSuite) TestOpenMissingFile() {
	_, err := mmdb.Open(filepath.Join(suite.T().TempDir(), "nope.mmdb"))
	suite.Error(err)
}

func (suite *ReaderTestSuite) TestFromBytesGarbage() {
	_, err := mmdb.FromBytes(make([]byte, 4096))
	suite.ErrorIs(err, mmdb.ErrMetadataNotFound)
}

func (suite *ReaderTestSuite) TestFromBytesOversizedNodeCount() {
	// node_count is taken from the file as-is, so values whose tree
	// does not fit the buffer must fail the open cleanly. The huge one
	// would overflow signed tree-size arithmetic if multiplied first.
	for _, nodeCount := range []mmdb.Uint64{1000, 0xF000000000000000} {
		metadata, err := mmdbtest.Encode(mmdb.Map{
			{Key: "node_count", Value: nodeCount},
			{Key: "record_size", Value: mmdb.Uint16(24)},
			{Key: "ip_version", Value: mmdb.Uint16(4)},
			{Key: "binary_format_major_version", Value: mmdb.Uint16(2)},
			{Key: "binary_format_minor_version", Value: mmdb.Uint16(0)},
			{Key: "database_type", Value: mmdb.String("Test")},
			{Key: "build_epoch", Value: mmdb.Uint64(1600000000)},
		})
		suite.Require().NoError(err)

		content := make([]byte, 64)
		content = append(content, "\xab\xcd\xefMaxMind.com"...)
		content = append(content, metadata...)

		_, err = mmdb.FromBytes(content)
		suite.ErrorIs(err, mmdb.ErrMetadataMalformed)
	}
}

func TestReader(t *testing.T) {
	suite.Run(t, &ReaderTestSuite{})
}
