package core

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidators(t *testing.T) {
	validate, translator := NewValidator()

	type form struct {
		Mobile string `json:"mobile" validate:"omitempty,bdmobile"`
		Code   string `json:"code" validate:"omitempty,shortcode"`
		Name   string `json:"name" validate:"required,notblank"`
		Slug   string `json:"slug" validate:"omitempty,alphanum_"`
		Email  string `json:"email" validate:"required_without=Mobile"`
		Ignore string `json:"-" validate:"max=1"`
	}

	tests := []struct {
		name string
		f    form
		want map[string]string
	}{
		{"valid", form{Mobile: "01712345678", Code: "223344", Name: "Ali", Slug: "class_5"}, nil},
		{"bad mobile", form{Mobile: "1712345678", Name: "Ali"}, map[string]string{"mobile": "mobile must be an 11 digit mobile number"}},
		{"bad code", form{Code: "22334a", Name: "Ali", Email: "a@b.c"}, map[string]string{"code": "code must be a 6 digit code"}},
		{"blank name", form{Name: "  ", Email: "a@b.c"}, map[string]string{"name": "this field cannot be blank"}},
		{"bad slug", form{Name: "Ali", Slug: "class-5", Email: "a@b.c"}, map[string]string{"slug": "only alphanumeric characters and underscores are allowed"}},
		{"required", form{}, map[string]string{"name": "this field is required", "email": "this field is required"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.f)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			got := make(map[string]string, len(vErrs))
			for _, fe := range vErrs {
				got[fe.Field()] = fe.Translate(translator)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
