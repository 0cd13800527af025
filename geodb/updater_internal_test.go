package geodb

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/suite"

	"github.com/9seconds/geoipd/mmdb"
	"github.com/9seconds/geoipd/mmdb/mmdbtest"
)

const (
	testChecksumURL = "https://download.maxmind.com/app/geoip_download?edition_id=GeoLite2-City&license_key=apikey&suffix=tar.gz.sha256"
	testArchiveURL  = "https://download.maxmind.com/app/geoip_download?edition_id=GeoLite2-City&license_key=apikey&suffix=tar.gz"
)

type nullLogger struct{}

func (nullLogger) UpdateInfo(msg string)  {}
func (nullLogger) UpdateError(err error) {}

type UpdaterTestSuite struct {
	suite.Suite

	fs      afero.Fs
	store   *Store
	stats   *UsageStats
	updater *Updater
}

func (suite *UpdaterTestSuite) SetupSuite() {
	httpmock.Activate()
}

func (suite *UpdaterTestSuite) TearDownSuite() {
	httpmock.DeactivateAndReset()
}

func (suite *UpdaterTestSuite) SetupTest() {
	suite.fs = afero.NewMemMapFs()
	suite.Require().NoError(suite.fs.MkdirAll("/data", 0o755))

	suite.store = NewStore(suite.fs, "/data/database.mmdb")
	suite.stats = &UsageStats{}

	httpClient := NewHTTPClient(&http.Client{}, "test-agent", time.Millisecond, 100)

	updater, err := NewUpdater(suite.store,
		suite.fs,
		httpClient,
		nullLogger{},
		suite.stats,
		"GeoLite2-City",
		"apikey",
		time.Minute)
	suite.Require().NoError(err)

	suite.updater = updater
}

func (suite *UpdaterTestSuite) TearDownTest() {
	suite.updater.Shutdown()
	httpmock.Reset()
}

func (suite *UpdaterTestSuite) makeArchive() []byte {
	builder := &mmdbtest.Builder{}

	suite.Require().NoError(builder.Add("81.2.69.0/24",
		mmdb.Map{{Key: "country", Value: mmdb.String("GB")}}))

	database, err := builder.Build()
	suite.Require().NoError(err)

	buf := &bytes.Buffer{}
	gzipWriter := gzip.NewWriter(buf)
	tarWriter := tar.NewWriter(gzipWriter)

	suite.Require().NoError(tarWriter.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     "GeoLite2-City_20260825/GeoLite2-City.mmdb",
		Mode:     0o644,
		ModTime:  time.Now(),
		Size:     int64(len(database)),
	}))

	_, err = tarWriter.Write(database)
	suite.Require().NoError(err)
	suite.Require().NoError(tarWriter.Close())
	suite.Require().NoError(gzipWriter.Close())

	return buf.Bytes()
}

func (suite *UpdaterTestSuite) registerArchive(archive []byte, checksum string) {
	if checksum == "" {
		hashed := sha256.Sum256(archive)
		checksum = hex.EncodeToString(hashed[:])
	}

	httpmock.RegisterResponder("GET", testChecksumURL,
		httpmock.NewStringResponder(http.StatusOK,
			checksum+"  GeoLite2-City.tar.gz"))
	httpmock.RegisterResponder("GET", testArchiveURL,
		httpmock.NewBytesResponder(http.StatusOK, archive))
}

func (suite *UpdaterTestSuite) TestNoLicenseKey() {
	_, err := NewUpdater(suite.store,
		suite.fs,
		NewHTTPClient(&http.Client{}, "test-agent", time.Millisecond, 100),
		nullLogger{},
		suite.stats,
		"GeoLite2-City",
		"",
		time.Minute)

	suite.ErrorIs(err, ErrLicenseKeyIsRequired)
}

func (suite *UpdaterTestSuite) TestChecksumBadStatus() {
	httpmock.RegisterResponder("GET", testChecksumURL,
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	suite.Error(suite.updater.update(context.Background()))
}

func (suite *UpdaterTestSuite) TestChecksumBadFormat() {
	httpmock.RegisterResponder("GET", testChecksumURL,
		httpmock.NewStringResponder(http.StatusOK, "???"))

	suite.Error(suite.updater.update(context.Background()))
}

func (suite *UpdaterTestSuite) TestChecksumMismatch() {
	suite.registerArchive(suite.makeArchive(),
		"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")

	err := suite.updater.update(context.Background())
	suite.ErrorIs(err, ErrChecksumMismatch)
	suite.False(suite.store.Ready())
}

func (suite *UpdaterTestSuite) TestArchiveNotGzip() {
	raw := []byte("hello")
	suite.registerArchive(raw, "")

	suite.Error(suite.updater.update(context.Background()))
}

func (suite *UpdaterTestSuite) TestNoDatabaseInArchive() {
	buf := &bytes.Buffer{}
	gzipWriter := gzip.NewWriter(buf)
	tarWriter := tar.NewWriter(gzipWriter)

	suite.Require().NoError(tarWriter.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     "file.txt",
		Mode:     0o644,
		ModTime:  time.Now(),
		Size:     5,
	}))

	_, err := tarWriter.Write([]byte("hello"))
	suite.Require().NoError(err)
	suite.Require().NoError(tarWriter.Close())
	suite.Require().NoError(gzipWriter.Close())

	suite.registerArchive(buf.Bytes(), "")

	err = suite.updater.update(context.Background())
	suite.ErrorIs(err, ErrNoDatabaseInArchive)
}

func (suite *UpdaterTestSuite) TestOk() {
	suite.registerArchive(suite.makeArchive(), "")

	suite.Require().NoError(suite.updater.update(context.Background()))
	suite.True(suite.store.Ready())

	value, err := suite.store.Lookup(context.Background(), net.ParseIP("81.2.69.142"))
	suite.NoError(err)
	suite.Equal(mmdb.Map{{Key: "country", Value: mmdb.String("GB")}}, value)
}

func TestUpdater(t *testing.T) {
	suite.Run(t, &UpdaterTestSuite{})
}
