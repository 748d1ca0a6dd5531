// Package docs provides the OpenAPI documentation for the todos API
//
// The document is embedded at build time and served at /docs/openapi.yaml;
// Swagger UI at /swagger/index.html renders it.
//
// @title    Todos API
// @version  1.0.0
// @BasePath /
//
// @tag.name System
// @tag.description Health checks and metrics
//
// @tag.name Todos
// @tag.description Create, read, update and delete todo items
package docs

import _ "embed"

// OpenAPI is the OpenAPI 3 document for the API.
//
//go:embed openapi.yaml
var OpenAPI []byte
