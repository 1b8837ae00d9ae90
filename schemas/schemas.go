// Package schemas holds the JSON Schemas for files the tool reads.
package schemas

import _ "embed"

// ProjectConfigSchemaJSON describes .aiteam.yaml.
//
//go:embed project-config.schema.json
var ProjectConfigSchemaJSON string
