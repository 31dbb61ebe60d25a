package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONMapValue(t *testing.T) {
	tests := []struct {
		name  string
		input JSONMap
		want  string
	}{
		{"nil map", nil, "{}"},
		{"empty map", JSONMap{}, "{}"},
		{"scalar", JSONMap{"top": 10}, `{"top":10}`},
		{"list", JSONMap{"region": []any{"North", "East"}}, `{"region":["North","East"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.input.Value()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONMapScan(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		wantKeys []string
		wantErr  bool
	}{
		{name: "nil value", input: nil},
		{name: "string", input: `{"region":["North"]}`, wantKeys: []string{"region"}},
		{name: "bytes", input: []byte(`{"a":1,"b":null}`), wantKeys: []string{"a", "b"}},
		{name: "invalid JSON", input: "not json", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m JSONMap
			err := m.Scan(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, m, len(tt.wantKeys))
			for _, key := range tt.wantKeys {
				assert.Contains(t, m, key)
			}
		})
	}
}

func TestSessionRecord_IsOpen(t *testing.T) {
	tests := []struct {
		name   string
		record SessionRecord
		want   bool
	}{
		{"active with cache", SessionRecord{State: SessionStateActive, CacheID: "c1"}, true},
		{"active without cache", SessionRecord{State: SessionStateActive}, false},
		{"disposed", SessionRecord{State: SessionStateDisposed, CacheID: "c1"}, false},
		{"failed", SessionRecord{State: SessionStateFailed, CacheID: "c1"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.IsOpen())
		})
	}
}

func TestAllModels(t *testing.T) {
	models := AllModels()
	require.Len(t, models, 2)
	assert.IsType(t, &SessionRecord{}, models[0])
	assert.IsType(t, &StatusEvent{}, models[1])

	assert.Equal(t, "session_records", SessionRecord{}.TableName())
	assert.Equal(t, "status_events", StatusEvent{}.TableName())
}
