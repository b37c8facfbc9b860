package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const petsV3 = `{
  "openapi": "3.0.3",
  "info": {"title": "Pets", "version": "1.0.0"},
  "paths": {},
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "integer"},
          "name": {"type": "string"}
        }
      }
    }
  }
}`

func TestLoadInputErrors(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		errContains string
	}{
		{"malformed", `{"openapi": `, "malformed document"},
		{"empty", ``, "malformed document"},
		{"array root", `[1, 2]`, "document root must be an object"},
		{"missing version", `{"info": {"title": "x"}, "paths": {}}`, "missing openapi or swagger version field"},
		{"missing info", `{"openapi": "3.0.0", "paths": {}}`, "missing info object"},
		{"info not object", `{"openapi": "3.0.0", "info": "x", "paths": {}}`, "missing info object"},
		{"missing paths", `{"swagger": "2.0", "info": {"title": "x"}}`, "missing paths object"},
		{"unsupported version", `{"openapi": "1.0", "info": {"title": "x"}, "paths": {}}`, "unsupported OpenAPI document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.input), Options{})
			require.Error(t, err)

			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			require.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestLoad(t *testing.T) {
	result, err := Load([]byte(petsV3), Options{BaseDir: "/specs"})
	require.NoError(t, err)
	require.Equal(t, "3.0.3", result.Version)
	require.Equal(t, "/specs", result.BaseDir)
	require.NotNil(t, result.Root)
	require.NotNil(t, result.OpenAPI)
	require.Nil(t, result.Swagger)
	require.Empty(t, result.Warnings)
}

func TestLoadYAML(t *testing.T) {
	doc := `
swagger: "2.0"
info:
  title: Legacy
  version: "1"
paths: {}
`
	result, err := Load([]byte(doc), Options{})
	require.NoError(t, err)
	require.Equal(t, "2.0", result.Version)
	require.NotNil(t, result.Swagger)
	require.Nil(t, result.OpenAPI)
}

func TestLoadStrict(t *testing.T) {
	invalid := `{
  "openapi": "3.0.3",
  "info": {"title": "No version"},
  "paths": {}
}`

	t.Run("lenient accepts", func(t *testing.T) {
		_, err := Load([]byte(invalid), Options{})
		require.NoError(t, err)
	})

	t.Run("strict rejects", func(t *testing.T) {
		_, err := Load([]byte(invalid), Options{Strict: true})
		var inputErr *InputError
		require.ErrorAs(t, err, &inputErr)
	})

	t.Run("strict accepts valid", func(t *testing.T) {
		_, err := Load([]byte(petsV3), Options{Strict: true})
		require.NoError(t, err)
	})

	t.Run("strict skips swagger", func(t *testing.T) {
		doc := `{"swagger": "2.0", "info": {"title": "x", "version": "1"}, "paths": {}}`
		result, err := Load([]byte(doc), Options{Strict: true})
		require.NoError(t, err)
		require.Len(t, result.Warnings, 1)
		require.Contains(t, result.Warnings[0], "strict validation skipped")
	})
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pets.json")
	require.NoError(t, os.WriteFile(path, []byte(petsV3), 0o644))

	data, baseDir, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, dir, baseDir)

	result, err := Load(data, Options{BaseDir: baseDir})
	require.NoError(t, err)
	require.Equal(t, dir, result.BaseDir)

	_, _, err = ReadFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "reading spec file")
}
