package quotes

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// LoadColumnMapping reads a YAML column-mapping file. The file is a flat map
// of input column name to canonical field name:
//
//	mid_eod: option_price
//	exercise_date: expiration_date
//	cp_flag: option_type
func LoadColumnMapping(path string) (ColumnMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read column mapping: %w", err)
	}

	var cm ColumnMapping
	if err := yaml.Unmarshal(data, &cm); err != nil {
		return nil, fmt.Errorf("parse column mapping %s: %w", path, err)
	}
	if err := cm.Validate(); err != nil {
		return nil, fmt.Errorf("column mapping %s: %w", path, err)
	}
	return cm, nil
}
