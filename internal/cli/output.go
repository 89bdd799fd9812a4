package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"
)

// printStructured writes v as json or yaml. It returns false when the format asks for
// the human readable output instead.
func printStructured(w io.Writer, format string, v any) (bool, error) {
	var (
		marshalled []byte
		err        error
	)

	switch format {
	case jsonFormat:
		marshalled, err = json.MarshalIndent(v, "", "  ")
	case yamlFormat:
		marshalled, err = yaml.Marshal(v)
	default:
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("marshalling response: %w", err)
	}

	fmt.Fprintf(w, "%s\n", string(marshalled))
	return true, nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
