// Package assets embeds static files shipped with the binaries (email templates).
package assets

import "embed"

//go:embed templates
var FS embed.FS
