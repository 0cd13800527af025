package geodb

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/afero"
)

var updaterChecksumRegexp = regexp.MustCompile(`(?i)^[a-f0-9]{64}`)

// Updater periodically downloads a fresh database edition from the
// MaxMind permalink, verifies it against the published sha256 sidecar
// and swaps it into the store.
type Updater struct {
	store       *Store
	fs          afero.Fs
	httpClient  HTTPClient
	logger      Logger
	stats       *UsageStats
	edition     string
	licenseKey  string
	updateEvery time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// NewUpdater returns a new updater instance. It does nothing until
// Start is called.
func NewUpdater(store *Store,
	fs afero.Fs,
	httpClient HTTPClient,
	logger Logger,
	stats *UsageStats,
	edition, licenseKey string,
	updateEvery time.Duration) (*Updater, error) {
	if licenseKey == "" {
		return nil, ErrLicenseKeyIsRequired
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Updater{
		store:       store,
		fs:          fs,
		httpClient:  httpClient,
		logger:      logger,
		stats:       stats,
		edition:     edition,
		licenseKey:  licenseKey,
		updateEvery: updateEvery,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

func (u *Updater) Start() {
	go u.bgUpdate()
}

func (u *Updater) Shutdown() {
	u.cancel()
}

func (u *Updater) bgUpdate() {
	timer := time.NewTicker(u.updateEvery)
	defer timer.Stop()

	if err := u.update(u.ctx); err != nil {
		u.logger.UpdateError(err)
	}

	for {
		select {
		case <-u.ctx.Done():
			return
		case <-timer.C:
			if err := u.update(u.ctx); err != nil {
				u.logger.UpdateError(err)
			}
		}
	}
}

func (u *Updater) update(ctx context.Context) error {
	expectedChecksum, err := u.downloadChecksum(ctx)
	if err != nil {
		return fmt.Errorf("cannot download a checksum: %w", err)
	}

	archivePath, actualChecksum, err := u.downloadArchive(ctx)

	if archivePath != "" {
		defer u.fs.Remove(archivePath) // nolint: errcheck
	}

	if err != nil {
		return fmt.Errorf("cannot download an archive: %w", err)
	}

	if !strings.EqualFold(expectedChecksum, actualChecksum) {
		return fmt.Errorf("%w: expected=%s, actual=%s",
			ErrChecksumMismatch,
			expectedChecksum,
			actualChecksum)
	}

	databasePath, err := u.extractDatabase(archivePath)
	if err != nil {
		return fmt.Errorf("cannot extract an archive: %w", err)
	}

	if err := u.fs.Rename(databasePath, u.store.Path()); err != nil {
		return fmt.Errorf("cannot move a database in place: %w", err)
	}

	if err := u.store.Open(); err != nil {
		return fmt.Errorf("cannot open a new database: %w", err)
	}

	u.stats.Updated()
	u.logger.UpdateInfo("database has been updated")

	return nil
}

func (u *Updater) downloadChecksum(ctx context.Context) (string, error) {
	req, _ := http.NewRequestWithContext(ctx, "GET", u.buildURL("tar.gz.sha256"), nil)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("cannot fetch a checksum page: %w", err)
	}

	defer flushResponse(resp.Body)

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cannot read body of the response: %w", err)
	}

	checksum := updaterChecksumRegexp.Find(bytes.TrimSpace(data))
	if checksum == nil {
		return "", errors.New("incorrect checksum format")
	}

	return string(checksum), nil
}

func (u *Updater) downloadArchive(ctx context.Context) (string, string, error) {
	req, _ := http.NewRequestWithContext(ctx, "GET", u.buildURL("tar.gz"), nil)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("cannot download an archive: %w", err)
	}

	defer flushResponse(resp.Body)

	archiveFile, err := afero.TempFile(u.fs, filepath.Dir(u.store.Path()), "archive-*.tar.gz")
	if err != nil {
		return "", "", fmt.Errorf("cannot create an archive file: %w", err)
	}

	defer archiveFile.Close()

	hasher := sha256.New()

	if _, err := io.Copy(io.MultiWriter(hasher, archiveFile), bufio.NewReader(resp.Body)); err != nil {
		return archiveFile.Name(), "", fmt.Errorf("cannot save an archive: %w", err)
	}

	return archiveFile.Name(), hex.EncodeToString(hasher.Sum(nil)), nil
}

func (u *Updater) extractDatabase(archivePath string) (string, error) {
	archiveFile, err := u.fs.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("cannot open an archive: %w", err)
	}

	defer archiveFile.Close()

	ungzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return "", fmt.Errorf("cannot create a gzip reader: %w", err)
	}

	tarReader := tar.NewReader(ungzipReader)

	for {
		header, err := tarReader.Next()

		switch {
		case err == io.EOF:
			return "", ErrNoDatabaseInArchive
		case err != nil:
			return "", fmt.Errorf("cannot extract a header: %w", err)
		case header.Linkname != "", header.FileInfo().IsDir():
			continue
		case strings.ToUpper(filepath.Ext(header.Name)) == ".MMDB":
			databaseFile, err := afero.TempFile(u.fs,
				filepath.Dir(u.store.Path()),
				"database-*.mmdb")
			if err != nil {
				return "", fmt.Errorf("cannot create a database file: %w", err)
			}

			defer databaseFile.Close()

			if _, err := io.Copy(databaseFile, tarReader); err != nil {
				return "", fmt.Errorf("cannot copy into a database file: %w", err)
			}

			return databaseFile.Name(), nil
		}
	}
}

func (u *Updater) buildURL(suffix string) string {
	queryValues := url.Values{}

	queryValues.Set("edition_id", u.edition)
	queryValues.Set("suffix", suffix)
	queryValues.Set("license_key", u.licenseKey)

	urlStruct := url.URL{
		Scheme:   "https",
		Host:     "download.maxmind.com",
		Path:     "/app/geoip_download",
		RawQuery: queryValues.Encode(),
	}

	return urlStruct.String()
}

func flushResponse(resp io.ReadCloser) {
	io.Copy(ioutil.Discard, resp) // nolint: errcheck
	resp.Close()
}
