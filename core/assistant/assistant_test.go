package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswer(t *testing.T) {
	tests := []struct {
		message string
		want    string
	}{
		{"How can I get ADMISSION for my son?", "admission"},
		{"what are the monthly fees", "fees"},
		{"When does the madrasa open?", "timing"},
		{"Do you teach hifz?", "hifz"},
		{"ভর্তি কবে শুরু?", "admission"},
		{"where is it", "location"},
		{"salam", "greeting"},
		{"", "greeting"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			r := Answer(tt.message)
			assert.Equal(t, tt.want, r.Topic)
			assert.NotEmpty(t, r.Answer)
		})
	}
}
