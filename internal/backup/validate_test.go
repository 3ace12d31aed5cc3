package backup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		value any
		field string
		valid bool
	}{
		{name: "empty object", value: map[string]any{}, field: "jobs"},
		{name: "minimal", value: map[string]any{"jobs": []any{}, "settings": map[string]any{}, "metadata": map[string]any{}}, valid: true},
		{name: "nil", value: nil},
		{name: "array", value: []any{}},
		{name: "string", value: "backup"},
		{name: "number", value: 12.0},
		{name: "jobs not array", value: map[string]any{"jobs": map[string]any{}, "settings": map[string]any{}, "metadata": map[string]any{}}, field: "jobs"},
		{name: "jobs null", value: map[string]any{"jobs": nil, "settings": map[string]any{}, "metadata": map[string]any{}}, field: "jobs"},
		{name: "missing settings", value: map[string]any{"jobs": []any{}, "metadata": map[string]any{}}, field: "settings"},
		{name: "settings array", value: map[string]any{"jobs": []any{}, "settings": []any{}, "metadata": map[string]any{}}, field: "settings"},
		{name: "missing metadata", value: map[string]any{"jobs": []any{}, "settings": map[string]any{}}, field: "metadata"},
		{name: "metadata string", value: map[string]any{"jobs": []any{}, "settings": map[string]any{}, "metadata": "x"}, field: "metadata"},
		{name: "jobs checked before settings", value: map[string]any{"settings": 1}, field: "jobs"},
		{name: "elements not checked", value: map[string]any{"jobs": []any{1, "x"}, "settings": map[string]any{}, "metadata": map[string]any{}}, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.value)
			require.Equal(t, tt.valid, res.Valid)
			require.Equal(t, tt.field, res.Field)
			if tt.valid {
				require.NoError(t, res.Err())
				return
			}
			require.NotEmpty(t, res.Error)
			require.True(t, errors.Is(res.Err(), ErrValidation))
		})
	}
}

func TestValidate_TypedStruct(t *testing.T) {
	type partial struct {
		Jobs []int `json:"jobs"`
	}
	res := Validate(partial{Jobs: []int{}})
	require.False(t, res.Valid)
	require.Equal(t, "settings", res.Field)
}

func TestValidateJSON(t *testing.T) {
	res, err := ValidateJSON([]byte(`{"jobs":[],"settings":{},"metadata":{}}`))
	require.NoError(t, err)
	require.True(t, res.Valid)

	res, err = ValidateJSON([]byte(`[]`))
	require.NoError(t, err)
	require.False(t, res.Valid)

	_, err = ValidateJSON([]byte(`{"jobs":`))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrValidation))
}
