package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("tcgetattr failed")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "classified error",
			err:  Wrap(KindResource, cause, "capture stdin mode"),
			want: KindResource,
		},
		{
			name: "wrapped classified error",
			err:  fmt.Errorf("start session: %w", New(KindEnvironment, "stdout is not a tty")),
			want: KindEnvironment,
		},
		{
			name: "plain error",
			err:  cause,
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("pipe: too many open files")
	err := Wrap(KindResource, cause, "create wakeup pipe")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "create wakeup pipe: pipe: too many open files", err.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "usage", KindUsage.String())
	assert.Equal(t, "environment", KindEnvironment.String())
	assert.Equal(t, "resource", KindResource.String())
	assert.Equal(t, "backend", KindBackend.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
