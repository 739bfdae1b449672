package provisioner

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const configRowID = 1

type configModel struct {
	ID               int64             `gorm:"primaryKey;autoIncrement:false"`
	TargetOS         string            `gorm:"column:target_os"`
	IssueCredentials bool              `gorm:"column:issue_credentials"`
	ExtraValues      datatypes.JSONMap `gorm:"column:extra_values"`
	UpdatedAt        time.Time         `gorm:"column:updated_at"`
}

func (configModel) TableName() string { return "global_config" }

func (m configModel) toAPI() GlobalConfig {
	return GlobalConfig{
		TargetOS:         TargetOS(m.TargetOS),
		IssueCredentials: m.IssueCredentials,
		ExtraValues:      mapFromJSONMap(m.ExtraValues),
	}
}

func configModelFrom(cfg GlobalConfig, now time.Time) configModel {
	return configModel{
		ID:               configRowID,
		TargetOS:         string(cfg.TargetOS),
		IssueCredentials: cfg.IssueCredentials,
		ExtraValues:      toJSONMap(cfg.ExtraValues),
		UpdatedAt:        now,
	}
}

func mapFromJSONMap(m datatypes.JSONMap) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeJSON(v)
	}
	return out
}

// normalizeJSON maps decoded numbers to float64 whether or not the decoder
// was configured with UseNumber.
func normalizeJSON(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = normalizeJSON(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = normalizeJSON(inner)
		}
		return out
	default:
		return v
	}
}

func toJSONMap(m map[string]any) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
