package migrations

import "embed"

// FS exposes the numbered migration sources so goose can match them to the
// registered Go migrations without reading the working directory.
//
//go:embed 0*.go
var FS embed.FS
