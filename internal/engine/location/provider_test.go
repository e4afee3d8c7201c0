package location

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/rendis/templestay/internal/model"
)

type funcSource func(ctx context.Context) (model.Coordinate, error)

func (f funcSource) Locate(ctx context.Context) (model.Coordinate, error) {
	return f(ctx)
}

func TestProvider_CurrentLocation(t *testing.T) {
	here := model.Coordinate{Lat: 35.79, Lng: 129.332}

	tests := []struct {
		name      string
		source    Source
		expected  Fix
		hasNotice bool
	}{
		{
			name:     "located",
			source:   StaticSource{Coordinate: here},
			expected: Fix{Coordinate: here},
		},
		{
			name: "permission denied",
			source: funcSource(func(context.Context) (model.Coordinate, error) {
				return model.Coordinate{}, ErrPermissionDenied
			}),
			expected:  Fix{Coordinate: DefaultCenter, Fallback: true, Condition: ConditionPermissionDenied},
			hasNotice: true,
		},
		{
			name:      "unavailable",
			source:    UnavailableSource{},
			expected:  Fix{Coordinate: DefaultCenter, Fallback: true, Condition: ConditionUnavailable},
			hasNotice: true,
		},
		{
			name:      "nil source",
			source:    nil,
			expected:  Fix{Coordinate: DefaultCenter, Fallback: true, Condition: ConditionUnavailable},
			hasNotice: true,
		},
		{
			name:      "invalid coordinate",
			source:    StaticSource{Coordinate: model.Coordinate{Lat: 120, Lng: 0}},
			expected:  Fix{Coordinate: DefaultCenter, Fallback: true, Condition: ConditionUnavailable},
			hasNotice: true,
		},
		{
			name: "timeout",
			source: funcSource(func(ctx context.Context) (model.Coordinate, error) {
				<-ctx.Done()
				return model.Coordinate{}, ctx.Err()
			}),
			expected:  Fix{Coordinate: DefaultCenter, Fallback: true, Condition: ConditionTimeout},
			hasNotice: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProvider(tt.source, 20*time.Millisecond, DefaultCenter, zerolog.Nop())

			fix := p.CurrentLocation(context.Background())

			assert.Equal(t, tt.expected, fix)
			assert.Equal(t, tt.hasNotice, fix.Notice() != "")
		})
	}
}

func TestProvider_SourceIgnoresContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	src := funcSource(func(context.Context) (model.Coordinate, error) {
		<-block
		return model.Coordinate{Lat: 1, Lng: 1}, nil
	})
	p := NewProvider(src, 10*time.Millisecond, DefaultCenter, zerolog.Nop())

	start := time.Now()
	fix := p.CurrentLocation(context.Background())

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, ConditionTimeout, fix.Condition)
}
