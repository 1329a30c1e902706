package tuning

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

type Tuning struct {
	Keepaway Keepaway `yaml:"keepaway" json:"keepaway"`
	Observer Observer `yaml:"observer" json:"observer"`
}

type Keepaway struct {
	ReliefDivisor       int64 `yaml:"relief_divisor" json:"relief_divisor"`
	ReliefRounds        int   `yaml:"relief_rounds" json:"relief_rounds"`
	BoundedRounds       int   `yaml:"bounded_rounds" json:"bounded_rounds"`
	SnapshotEveryRounds int   `yaml:"snapshot_every_rounds" json:"snapshot_every_rounds"`
	LogSegmentRounds    int   `yaml:"log_segment_rounds" json:"log_segment_rounds"`
}

type Observer struct {
	RoundsPerSecond int `yaml:"rounds_per_second" json:"rounds_per_second"`
	QueueDepth      int `yaml:"queue_depth" json:"queue_depth"`
}

func Defaults() Tuning {
	return Tuning{
		Keepaway: Keepaway{
			ReliefDivisor:       3,
			ReliefRounds:        20,
			BoundedRounds:       10000,
			SnapshotEveryRounds: 1000,
			LogSegmentRounds:    1000,
		},
		Observer: Observer{
			RoundsPerSecond: 50,
			QueueDepth:      8,
		},
	}
}

//go:embed tuning.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("tuning.schema.json", schemaJSON)

// Load reads a tuning file. A missing file yields Defaults(); keys absent
// from the file keep their default values.
func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Defaults(), nil
	}
	if err != nil {
		return Tuning{}, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Tuning, error) {
	t := Defaults()

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if doc == nil {
		return t, nil
	}
	if err := validate(doc); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// validate checks a decoded YAML document against the schema. The schema
// library expects encoding/json value types, so the document is re-encoded.
func validate(doc any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return schema.Validate(v)
}
