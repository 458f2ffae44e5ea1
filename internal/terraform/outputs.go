package terraform

import (
	"encoding/json"
	"fmt"
)

type outputValue struct {
	Value     json.RawMessage `json:"value"`
	Sensitive bool            `json:"sensitive"`
}

// Output names produced by the infrastructure definition. All three are
// required; a missing one means the definition and this tool have drifted.
const (
	outputRegistryURL     = "ecr_repository_url"
	outputClusterName     = "cluster_name"
	outputClusterEndpoint = "cluster_endpoint"
)

func parseOutputs(raw string) (*Outputs, error) {
	var values map[string]outputValue
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("parsing terraform outputs: %w", err)
	}

	out := &Outputs{}
	for name, dst := range map[string]*string{
		outputRegistryURL:     &out.RegistryURL,
		outputClusterName:     &out.ClusterName,
		outputClusterEndpoint: &out.ClusterEndpoint,
	} {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("required terraform output %q is missing; has the infrastructure been applied?", name)
		}
		var s string
		if err := json.Unmarshal(v.Value, &s); err != nil {
			return nil, fmt.Errorf("terraform output %q is not a string: %w", name, err)
		}
		if s == "" {
			return nil, fmt.Errorf("required terraform output %q is empty", name)
		}
		*dst = s
	}
	return out, nil
}
