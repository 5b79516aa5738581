package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/forge-ai/forge-core/pkg/models"
)

// LoadDefinition reads a declarative workflow document (§6's "top-level
// keys name, description, version, steps[]") from path. It does not
// validate acyclicity or agent-type references; call Validate (or
// Engine.Execute, which validates internally) for that.
func LoadDefinition(path string) (models.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("workflow: read %s: %w", path, err)
	}
	return ParseDefinition(data)
}

// ParseDefinition decodes raw YAML bytes into a WorkflowDefinition.
func ParseDefinition(data []byte) (models.WorkflowDefinition, error) {
	var def models.WorkflowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return models.WorkflowDefinition{}, fmt.Errorf("workflow: parse yaml: %w", err)
	}
	if def.Name == "" {
		return models.WorkflowDefinition{}, fmt.Errorf("workflow: name is required")
	}
	return def, nil
}
