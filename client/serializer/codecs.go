package serializer

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Content types written by the bundled serializers.
const (
	ContentTypeJSON = "application/json"
	ContentTypeXML  = "application/xml"
	ContentTypeYAML = "application/yaml"
)

// JSON encodes with [encoding/json].
type JSON struct {
	// UseNumber decodes numbers into [json.Number] instead of float64,
	// preserving precision.
	UseNumber bool
}

func (JSON) ContentType() string { return ContentTypeJSON }

func (JSON) Serialize(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json marshal: %w", err)
	}

	return b, nil
}

func (j JSON) Deserialize(r io.Reader, v any) error {
	d := json.NewDecoder(r)
	if j.UseNumber {
		d.UseNumber()
	}

	if err := d.Decode(v); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}

	return nil
}

// XML encodes with [encoding/xml].
type XML struct{}

func (XML) ContentType() string { return ContentTypeXML }

func (XML) Serialize(v any) ([]byte, error) {
	b, err := xml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("xml marshal: %w", err)
	}

	return b, nil
}

func (XML) Deserialize(r io.Reader, v any) error {
	if err := xml.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("xml decode: %w", err)
	}

	return nil
}

// YAML encodes with [gopkg.in/yaml.v3].
type YAML struct{}

func (YAML) ContentType() string { return ContentTypeYAML }

func (YAML) Serialize(v any) ([]byte, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("yaml marshal: %w", err)
	}

	return b, nil
}

func (YAML) Deserialize(r io.Reader, v any) error {
	if err := yaml.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("yaml decode: %w", err)
	}

	return nil
}
