// Package configs provides embedded configuration templates for docdex.
//
// Templates are embedded at build time with //go:embed so they ship inside
// the binary regardless of how it was installed. Both files list every
// setting commented out with its default, so writing one changes nothing
// until the user uncomments a line.
//
// Configuration precedence (see internal/config.Load):
//  1. Hardcoded defaults
//  2. User config (~/.config/docdex/config.yaml)
//  3. Project config (.docdex.yaml)
//  4. .env in the project directory
//  5. Environment variables (DOCDEX_*)
package configs

import _ "embed"

// UserConfigTemplate is the machine-level template written by
// `docdex config init` to ~/.config/docdex/config.yaml. It covers settings
// shared by every project on the machine: logging, the embedding provider,
// and indexing concurrency.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is the per-project template written by
// `docdex config init --project` to .docdex.yaml. It covers settings that
// travel with the documentation set: source policy, chunking, watch, and
// search ranking.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
