// Package common holds process-wide helpers shared by the binaries.
package common

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/ruteri/record-store/common.Version=v1.2.3"
var Version = "dev"

// PackageName prefixes the Prometheus metric names.
const PackageName = "recordstore"
