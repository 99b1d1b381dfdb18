// pkg/catalog/catalog.go
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Load reads the action catalog from disk.
func Load(path string) (*ActionCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat ActionCatalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse action catalog: %w", err)
	}
	return &cat, nil
}

// Find returns the action with the given id, or nil.
func (c *ActionCatalog) Find(id string) *Action {
	for i := range c.Actions {
		if c.Actions[i].ID == id {
			return &c.Actions[i]
		}
	}
	return nil
}

// ForStage returns every action invokable in the given stage.
func (c *ActionCatalog) ForStage(stage string) []Action {
	var actions []Action
	for _, action := range c.Actions {
		if action.Stage == stage {
			actions = append(actions, action)
		}
	}
	return actions
}

// ValidateInput checks an action payload against the action's JSON schema.
// An action without a schema accepts any payload.
func (a *Action) ValidateInput(input map[string]interface{}) error {
	if len(a.InputSchema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(a.InputSchema)
	documentLoader := gojsonschema.NewGoLoader(input)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validate %s input: %w", a.ID, err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("invalid %s input: %s", a.ID, strings.Join(problems, "; "))
	}
	return nil
}
