package geodb

import "errors"

var (
	// ErrDatabaseIsNotReadyYet is returned on access to a store which
	// has not opened a database yet. For example, the very first
	// download may still be in progress.
	ErrDatabaseIsNotReadyYet = errors.New("database is not initialized yet")

	// ErrLicenseKeyIsRequired is returned on an attempt to construct
	// an updater without a license key.
	ErrLicenseKeyIsRequired = errors.New("license key is required")

	// ErrNoDatabaseInArchive is returned if a downloaded archive
	// contains no database file.
	ErrNoDatabaseInArchive = errors.New("cannot find a database file in downloaded archive")

	// ErrChecksumMismatch is returned if a downloaded archive does not
	// match its published checksum.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
