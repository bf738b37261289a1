package registry_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-name-registry/internal/mocks"
	"github.com/feral-file/ff-name-registry/internal/registry"
)

func TestReservedLoader_Load(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		setupMocks   func(*mocks.MockFileSystem, *mocks.MockJSON)
		expectedErr  string
		validateFunc func(t *testing.T, reg registry.ReservedRegistry)
	}{
		{
			name: "successful load with names and prefixes",
			path: "reserved.json",
			setupMocks: func(mockFS *mocks.MockFileSystem, mockJSON *mocks.MockJSON) {
				mockFS.
					EXPECT().
					ReadFile("reserved.json").
					Return([]byte(`{"names": ["Admin", "root "], "prefixes": ["ff-"]}`), nil)
				mockJSON.
					EXPECT().
					Unmarshal(gomock.Any(), gomock.Any()).
					DoAndReturn(func(data []byte, v interface{}) error {
						return json.Unmarshal(data, v)
					})
			},
			validateFunc: func(t *testing.T, reg registry.ReservedRegistry) {
				assert.True(t, reg.IsReserved("admin"))
				assert.True(t, reg.IsReserved("ADMIN"))
				assert.True(t, reg.IsReserved("root"))
				assert.True(t, reg.IsReserved("ff-gallery"))
				assert.False(t, reg.IsReserved("administrator"))
				assert.False(t, reg.IsReserved("alice"))
			},
		},
		{
			name:       "empty path yields empty registry",
			path:       "",
			setupMocks: func(*mocks.MockFileSystem, *mocks.MockJSON) {},
			validateFunc: func(t *testing.T, reg registry.ReservedRegistry) {
				assert.False(t, reg.IsReserved("admin"))
			},
		},
		{
			name: "file read error",
			path: "missing.json",
			setupMocks: func(mockFS *mocks.MockFileSystem, mockJSON *mocks.MockJSON) {
				mockFS.
					EXPECT().
					ReadFile("missing.json").
					Return(nil, errors.New("no such file"))
			},
			expectedErr: "failed to read reserved names file",
		},
		{
			name: "invalid JSON",
			path: "reserved.json",
			setupMocks: func(mockFS *mocks.MockFileSystem, mockJSON *mocks.MockJSON) {
				mockFS.
					EXPECT().
					ReadFile("reserved.json").
					Return([]byte(`{`), nil)
				mockJSON.
					EXPECT().
					Unmarshal(gomock.Any(), gomock.Any()).
					Return(errors.New("unexpected end of JSON input"))
			},
			expectedErr: "failed to parse reserved names JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockFS := mocks.NewMockFileSystem(ctrl)
			mockJSON := mocks.NewMockJSON(ctrl)
			tt.setupMocks(mockFS, mockJSON)

			reg, err := registry.NewReservedLoader(mockFS, mockJSON).Load(tt.path)
			if tt.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
				return
			}
			require.NoError(t, err)
			tt.validateFunc(t, reg)
		})
	}
}

func TestNilRegistryReservesNothing(t *testing.T) {
	var reg registry.ReservedRegistry = registry.NewReservedRegistry(registry.ReservedData{})
	assert.False(t, reg.IsReserved(""))
}
