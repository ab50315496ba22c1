// Package storage provides the concrete record backends behind
// interfaces.RecordBackend.
//
// Every backend stores whole records addressed by an already sanitized
// StorageKey and reports interfaces.ErrRecordNotFound and
// interfaces.ErrRecordExists distinctly:
//
//   - FileBackend: one file per record in a local directory (afero filesystem)
//   - MemoryBackend: process memory, for tests and dry runs
//   - S3Backend: one object per record under a bucket prefix
//   - VaultBackend: one KV v2 secret per record
//   - IPFSBackend: one file per record in an IPFS MFS directory
//   - RedisBackend: one string value per record under a key prefix
//   - BadgerBackend: one key per record in an embedded BadgerDB
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/records/
//   - mem://scratch
//   - s3://ACCESS:SECRET@bucket-name/prefix/?region=us-west-2&endpoint=minio:9000&path_style=true
//   - vault://vault.example.com:8200/secret/records?token=...
//   - ipfs://127.0.0.1:5001/records?timeout=30s
//   - redis://:password@127.0.0.1:6379/0?prefix=records:
//   - badger:///var/lib/records.db or badger://?memory=true
//
// # Atomicity
//
// Create is atomic on the file (O_EXCL), Redis (SETNX), Vault (check-and-set
// version 0), Badger (transaction) and memory backends. S3 and IPFS check
// for existence before writing, which leaves a window for concurrent creators.
//
// # Usage Example
//
//	factory := storage.NewStorageBackendFactory(logger)
//	remote, err := factory.BackendFromURI("s3://records-bucket/prod?region=eu-west-1")
//	if err != nil {
//	    log.Fatalf("Failed to create remote backend: %v", err)
//	}
package storage
