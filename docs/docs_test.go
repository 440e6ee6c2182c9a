package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestRegisteredDocument(t *testing.T) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var parsed struct {
		Swagger string `json:"swagger"`
		Info    struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]map[string]struct {
			Responses map[string]json.RawMessage `json:"responses"`
		} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(doc), &parsed))

	assert.Equal(t, "2.0", parsed.Swagger)
	assert.Equal(t, "Items API", parsed.Info.Title)
	require.Contains(t, parsed.Paths, "/item")
	require.Contains(t, parsed.Paths, "/item/{id}")
	assert.Contains(t, parsed.Paths["/item"], "get")
	assert.Contains(t, parsed.Paths["/item"]["post"].Responses, "413")
	assert.Contains(t, parsed.Paths["/item/{id}"], "delete")
}
