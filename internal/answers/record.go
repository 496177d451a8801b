package answers

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/danieljhkim/scaffold/internal/version"
)

// Reserved keys in an answers file.
const (
	KeySourcePath   = "_src_path"
	KeyCommit       = "_commit"
	KeyTemplate     = "template"
	KeyAppName      = "app_name"
	KeyTemplateName = "template_name_id"
)

// header is written at the top of answers files scaffold creates itself.
const header = "# Changes here will be overwritten by Copier; NEVER EDIT MANUALLY\n"

// Record is the persisted state of one instance.
type Record struct {
	// SourceURI is the template origin used at the last render.
	SourceURI string

	// VersionToken is the raw version recorded at the last render.
	VersionToken string

	// Data holds every other key in the file.
	Data map[string]any
}

// Version parses the recorded token.
func (r *Record) Version() version.Version {
	return version.Parse(r.VersionToken)
}

// Get returns the string value of key in Data, or "".
func (r *Record) Get(key string) string {
	v, ok := r.Data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Unmarshal parses an answers file. Reserved keys keep their literal text,
// so a token such as 0123456 is not read as a number.
func Unmarshal(data []byte) (*Record, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse answers: %w", err)
	}

	rec := &Record{Data: map[string]any{}}
	if len(doc.Content) == 0 {
		return rec, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse answers: expected a mapping, got %s", root.Tag)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		switch key {
		case KeySourcePath:
			rec.SourceURI = scalar(value)
		case KeyCommit:
			rec.VersionToken = scalar(value)
		default:
			var v any
			if err := value.Decode(&v); err != nil {
				return nil, fmt.Errorf("failed to parse answer %s: %w", key, err)
			}
			rec.Data[key] = v
		}
	}
	return rec, nil
}

func scalar(n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return n.Value
}

// Marshal renders the record with the reserved keys first and the remaining
// keys sorted.
func (r *Record) Marshal() ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}

	add := func(key string, value any) error {
		var v yaml.Node
		if err := v.Encode(value); err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, &v)
		return nil
	}

	if err := add(KeyCommit, r.VersionToken); err != nil {
		return nil, err
	}
	if err := add(KeySourcePath, r.SourceURI); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(r.Data))
	for k := range r.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := add(k, r.Data[k]); err != nil {
			return nil, err
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answers: %w", err)
	}
	return append([]byte(header), out...), nil
}
