// Package templates holds the renderer templates compiled into the binary.
package templates

import "embed"

//go:embed turtle/*.tmpl rdfxml/*.tmpl
var FS embed.FS
