// Package data embeds the default HS code catalog partitions.
package data

import (
	"embed"
	"io/fs"
)

//go:embed *.json
var partitions embed.FS

// Partitions returns the embedded partition files.
func Partitions() fs.FS {
	return partitions
}
