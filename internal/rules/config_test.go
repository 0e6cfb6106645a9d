package rules

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tolerance-rules/internal/model"
)

func TestDecodeConfig(t *testing.T) {
	tests := []struct {
		name     string
		ruleType model.RuleType
		raw      string
		want     model.RuleConfig
		wantErr  string
	}{
		{
			name:     "one on one",
			ruleType: model.RuleTypeOneOnOneFrequency,
			raw:      `{"warningThresholdDays": 7, "urgentThresholdDays": 14, "onlyFullTimeEmployees": true}`,
			want:     model.OneOnOneConfig{WarningThresholdDays: 7, UrgentThresholdDays: 14, OnlyFullTimeEmployees: true},
		},
		{
			name:     "one on one without filter",
			ruleType: model.RuleTypeOneOnOneFrequency,
			raw:      `{"warningThresholdDays": 7, "urgentThresholdDays": 14}`,
			want:     model.OneOnOneConfig{WarningThresholdDays: 7, UrgentThresholdDays: 14},
		},
		{
			name:     "initiative check-in",
			ruleType: model.RuleTypeInitiativeCheckIn,
			raw:      `{"warningThresholdDays": 14}`,
			want:     model.InitiativeCheckInConfig{WarningThresholdDays: 14},
		},
		{
			name:     "feedback 360",
			ruleType: model.RuleTypeFeedback360,
			raw:      `{"warningThresholdMonths": 6}`,
			want:     model.Feedback360Config{WarningThresholdMonths: 6},
		},
		{
			name:     "manager span",
			ruleType: model.RuleTypeManagerSpan,
			raw:      `{"maxDirectReports": 8}`,
			want:     model.ManagerSpanConfig{MaxDirectReports: 8},
		},
		{
			name:     "missing field",
			ruleType: model.RuleTypeOneOnOneFrequency,
			raw:      `{"warningThresholdDays": 7}`,
			wantErr:  "urgentThresholdDays is required",
		},
		{
			name:     "negative threshold",
			ruleType: model.RuleTypeManagerSpan,
			raw:      `{"maxDirectReports": -1}`,
			wantErr:  "maxDirectReports must be greater than 0",
		},
		{
			name:     "fractional threshold",
			ruleType: model.RuleTypeInitiativeCheckIn,
			raw:      `{"warningThresholdDays": 1.5}`,
			wantErr:  "invalid initiative_checkin config",
		},
		{
			name:     "wrong type",
			ruleType: model.RuleTypeFeedback360,
			raw:      `{"warningThresholdMonths": "six"}`,
			wantErr:  "invalid feedback_360 config",
		},
		{
			name:     "empty payload",
			ruleType: model.RuleTypeFeedback360,
			raw:      ``,
			wantErr:  "warningThresholdMonths is required",
		},
		{
			name:     "malformed json",
			ruleType: model.RuleTypeManagerSpan,
			raw:      `{"maxDirectReports":`,
			wantErr:  "invalid manager_span config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeConfig(tt.ruleType, json.RawMessage(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ruleType, got.RuleType())
		})
	}
}

func TestDecodeConfig_UnknownType(t *testing.T) {
	_, err := DecodeConfig("max_reports", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.False(t, IsConfigError(err))
}

func TestConfigFor_TypeMismatch(t *testing.T) {
	rule := model.ToleranceRule{
		ID:       "r1",
		RuleType: model.RuleTypeManagerSpan,
		Config:   json.RawMessage(`{"maxDirectReports": 8}`),
	}
	_, err := configFor[model.OneOnOneConfig](rule)
	assert.ErrorContains(t, err, `expected "one_on_one_frequency"`)

	cfg, err := configFor[model.ManagerSpanConfig](rule)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.MaxDirectReports)
}
