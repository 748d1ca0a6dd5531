package docs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type openAPIDoc struct {
	OpenAPI string                    `yaml:"openapi"`
	Paths   map[string]map[string]any `yaml:"paths"`
}

func TestOpenAPI_DocumentsEveryRoute(t *testing.T) {
	var doc openAPIDoc
	require.NoError(t, yaml.Unmarshal(OpenAPI, &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)

	routes := map[string][]string{
		"/health":     {"get"},
		"/metrics":    {"get"},
		"/todos":      {"get", "post"},
		"/todos/{id}": {"get", "delete", "patch"},
	}
	for path, methods := range routes {
		item, ok := doc.Paths[path]
		require.True(t, ok, "missing path %s", path)
		for _, method := range methods {
			op, ok := item[method].(map[string]any)
			require.True(t, ok, "missing %s %s", method, path)
			assert.Contains(t, op, "responses", "%s %s has no responses", method, path)
		}
	}
}
