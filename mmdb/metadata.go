package mmdb

import (
	"bytes"
	"fmt"
	"time"
)

// metadataStartMarker precedes the metadata block. The block sits near
// the end of the file with possible trailing padding after it, so the
// marker is searched backwards.
var metadataStartMarker = []byte("\xab\xcd\xefMaxMind.com")

// metadataMaxSize bounds the backward scan. The format guarantees the
// metadata block lives within the final tens of kilobytes; 128 KiB is a
// generous window which still keeps a scan of a corrupt multi-gigabyte
// file cheap.
const metadataMaxSize = 128 * 1024

// Metadata describes geometry and provenance of an opened database.
type Metadata struct {
	NodeCount                uint
	RecordSize               uint
	IPVersion                uint
	BinaryFormatMajorVersion uint
	BinaryFormatMinorVersion uint
	DatabaseType             string
	Languages                []string
	BuildEpoch               uint64
	Description              map[string]string
}

// BuildTime returns the moment the database was built.
func (m Metadata) BuildTime() time.Time {
	return time.Unix(int64(m.BuildEpoch), 0).UTC()
}

// locateMetadata returns the offset right past the last occurrence of
// the metadata marker. A marker that exists only before the search
// window is reported distinctly from one which is absent altogether.
func locateMetadata(buffer byteSource) (int, error) {
	windowStart := 0
	if buffer.Len() > metadataMaxSize {
		windowStart = buffer.Len() - metadataMaxSize
	}

	index := bytes.LastIndex(buffer[windowStart:], metadataStartMarker)
	if index < 0 {
		if windowStart > 0 && bytes.LastIndex(buffer[:windowStart+len(metadataStartMarker)], metadataStartMarker) >= 0 {
			return 0, fmt.Errorf("%w: marker exists only before the final %d bytes",
				ErrMetadataNotFound, metadataMaxSize)
		}

		return 0, ErrMetadataNotFound
	}

	return windowStart + index + len(metadataStartMarker), nil
}

// decodeMetadata decodes the map which follows the marker and projects
// the known keys into Metadata.
func decodeMetadata(section byteSource) (Metadata, error) {
	rv := Metadata{}

	value, _, err := decoder{buffer: section}.Decode(0)
	if err != nil {
		return rv, fmt.Errorf("%w: %v", ErrMetadataMalformed, err)
	}

	raw, ok := value.(Map)
	if !ok {
		return rv, fmt.Errorf("%w: top level value is %T, not a map", ErrMetadataMalformed, value)
	}

	if rv.NodeCount, err = metadataUint(raw, "node_count"); err != nil {
		return rv, err
	}

	if rv.RecordSize, err = metadataUint(raw, "record_size"); err != nil {
		return rv, err
	}

	if rv.IPVersion, err = metadataUint(raw, "ip_version"); err != nil {
		return rv, err
	}

	if rv.BinaryFormatMajorVersion, err = metadataUint(raw, "binary_format_major_version"); err != nil {
		return rv, err
	}

	if rv.BinaryFormatMinorVersion, err = metadataUint(raw, "binary_format_minor_version"); err != nil {
		return rv, err
	}

	if rv.DatabaseType, err = metadataString(raw, "database_type"); err != nil {
		return rv, err
	}

	buildEpoch, err := metadataUint(raw, "build_epoch")
	if err != nil {
		return rv, err
	}

	rv.BuildEpoch = uint64(buildEpoch)

	// Provenance keys are not required for lookups to work.
	if languages, ok := raw.Get("languages").(Array); ok {
		for _, v := range languages {
			if lang, ok := v.(String); ok {
				rv.Languages = append(rv.Languages, string(lang))
			}
		}
	}

	if description, ok := raw.Get("description").(Map); ok {
		rv.Description = map[string]string{}

		for _, entry := range description {
			if text, ok := entry.Value.(String); ok {
				rv.Description[string(entry.Key)] = string(text)
			}
		}
	}

	return rv, validateMetadata(rv)
}

func validateMetadata(m Metadata) error {
	switch {
	case m.NodeCount == 0:
		return fmt.Errorf("%w: node_count must be positive", ErrMetadataMalformed)
	case m.RecordSize != 24 && m.RecordSize != 28 && m.RecordSize != 32:
		return fmt.Errorf("%w: unsupported record_size %d", ErrMetadataMalformed, m.RecordSize)
	case m.IPVersion != 4 && m.IPVersion != 6:
		return fmt.Errorf("%w: unsupported ip_version %d", ErrMetadataMalformed, m.IPVersion)
	}

	return nil
}

func metadataUint(m Map, key string) (uint, error) {
	switch value := m.Get(key).(type) {
	case Uint16:
		return uint(value), nil
	case Uint32:
		return uint(value), nil
	case Uint64:
		return uint(value), nil
	case nil:
		return 0, fmt.Errorf("%w: key %s is missing", ErrMetadataMalformed, key)
	default:
		return 0, fmt.Errorf("%w: key %s holds %T, not an unsigned integer",
			ErrMetadataMalformed, key, value)
	}
}

func metadataString(m Map, key string) (string, error) {
	switch value := m.Get(key).(type) {
	case String:
		return string(value), nil
	case nil:
		return "", fmt.Errorf("%w: key %s is missing", ErrMetadataMalformed, key)
	default:
		return "", fmt.Errorf("%w: key %s holds %T, not a string",
			ErrMetadataMalformed, key, value)
	}
}
