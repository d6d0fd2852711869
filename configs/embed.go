// Package configs embeds the starter configuration templates shipped
// alongside the process-wiki binary, so `process-wiki config init` works
// the same way from a source build, a release binary, or Homebrew without
// depending on files existing next to the executable.
//
// Template files:
//   - process-wiki.example.yaml: a fully-commented run configuration
//     (dump path, store location, chunker/embedding/ingestion tuning).
//   - persona.example.yaml: a sample persona definition for `process-wiki
//     query --persona <file>`, following the closed persona schema.
package configs

import _ "embed"

// RunConfigTemplate is the template for a process-wiki.yaml run config,
// the middle tier of the precedence chain documented in
// internal/config/config.go.
//
//go:embed process-wiki.example.yaml
var RunConfigTemplate string

// PersonaTemplate is a sample persona definition consumed by the query
// facade (internal/query.Persona) and the `process-wiki query` CLI's
// closed persona schema.
//
//go:embed persona.example.yaml
var PersonaTemplate string
