package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// StorageKey is the canonical, sanitized identifier of a record within a backend.
// Keys are produced by the records package; backends never sanitize them.
type StorageKey string

// String returns the key as a plain string.
func (k StorageKey) String() string {
	return string(k)
}

// HasExtension reports whether the key ends with the given extension.
func (k StorageKey) HasExtension(ext string) bool {
	return strings.HasSuffix(string(k), ext) && len(k) > len(ext)
}

// StorageBackendLocation represents URI for storage backend.
type StorageBackendLocation struct {
	Raw    string     // Original URI
	Scheme string     // Protocol
	Host   string     // Hostname
	Path   string     // Resource path
	Query  url.Values // Query parameters
	Auth   string     // Authentication info
	user   *url.Userinfo
}

// NewStorageBackendLocation creates a new storage location from a URI string with validation.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	switch scheme {
	case "file", "mem", "s3", "vault", "ipfs", "redis", "badger":
		// Valid scheme
	default:
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	var auth string
	if parsed.User != nil {
		auth = parsed.User.String()
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
		Auth:   auth,
		user:   parsed.User,
	}, nil
}

// String returns the original URI string.
func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// Username returns the user part of the authentication info, if any.
func (loc StorageBackendLocation) Username() string {
	if loc.user == nil {
		return ""
	}
	return loc.user.Username()
}

// Password returns the password part of the authentication info, if any.
func (loc StorageBackendLocation) Password() string {
	if loc.user == nil {
		return ""
	}
	p, _ := loc.user.Password()
	return p
}

// GetParam returns a query parameter value.
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

// GetParamBool returns a boolean query parameter value.
func (loc StorageBackendLocation) GetParamBool(name string) bool {
	value := loc.Query.Get(name)
	return value == "true" || value == "1" || value == "yes"
}

var (
	// ErrRecordNotFound is returned by a backend when the requested key is absent.
	ErrRecordNotFound = errors.New("record not found in backend")

	// ErrRecordExists is returned by a backend when creating a key that is already present.
	ErrRecordExists = errors.New("record already exists in backend")

	// ErrBackendUnavailable is returned when a storage backend is not accessible.
	// This could be due to network issues, authentication failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is malformed or unsupported.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")

	// ErrMalformedRecord matches every FormatError.
	ErrMalformedRecord = errors.New("malformed record")
)

// RecordBackend stores whole records addressed by StorageKey.
//
// Implementations must report ErrRecordNotFound and ErrRecordExists (possibly
// wrapped) rather than generic errors so callers can tell them apart.
type RecordBackend interface {
	// Exists reports whether the key is present.
	Exists(ctx context.Context, key StorageKey) (bool, error)

	// Read returns the full content stored under key, or ErrRecordNotFound.
	Read(ctx context.Context, key StorageKey) ([]byte, error)

	// Create stores an empty record under key, or fails with ErrRecordExists.
	Create(ctx context.Context, key StorageKey) error

	// Write stores data under key, replacing any previous content.
	Write(ctx context.Context, key StorageKey, data []byte) error

	// Delete removes key, or fails with ErrRecordNotFound.
	Delete(ctx context.Context, key StorageKey) error

	// List returns every key held by the backend. Order is unspecified, keys are unique.
	List(ctx context.Context) ([]StorageKey, error)

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// RecordSerializer turns records of type R into bytes and back.
// Deserialize(Serialize(r)) must equal r for every valid record.
type RecordSerializer[R any] interface {
	// Extension is the fixed file extension of serialized records, including the leading dot.
	Extension() string

	// Serialize encodes a record.
	Serialize(record R) ([]byte, error)

	// Deserialize decodes a record, failing with a *FormatError on malformed input.
	Deserialize(data []byte) (R, error)
}

// FormatError reports content a serializer could not decode.
type FormatError struct {
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s record: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, mem://, s3://, vault://, ipfs://, redis://, badger://
	StorageBackendFor(location StorageBackendLocation) (RecordBackend, error)
}
