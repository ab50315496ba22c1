// Package interfaces defines the contracts shared by the record store
// components, separating interface definitions from implementations.
//
// # Storage Interfaces
//
// RecordBackend: the capability every storage provider (local filesystem,
// S3, Vault, IPFS, Redis, Badger) implements. It addresses whole records by
// StorageKey: existence check, read, create, write, delete and list.
//
// StorageBackendFactory: creates backends from location URIs such as
// file:///var/lib/records or s3://bucket/prefix?region=eu-west-1.
//
// # Serialization
//
// RecordSerializer: converts a structured record into bytes and back and
// declares the fixed extension carried by every StorageKey. Decoding
// failures are reported as *FormatError, which matches ErrMalformedRecord.
//
// # Errors
//
// Backends report ErrRecordNotFound and ErrRecordExists distinctly so that the
// records package can map them onto its own error taxonomy.
package interfaces
