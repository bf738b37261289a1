package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitializeWithoutSentry(t *testing.T) {
	require.NoError(t, Initialize(Config{Debug: true}))
	assert.NotNil(t, Default())
	Flush(0)
}

func TestWithFieldsAccumulates(t *testing.T) {
	ctx := WithFields(context.Background(), zap.String("request_id", "r-1"))
	ctx = WithFields(ctx, zap.String("caller", "0xabc"))

	fields, ok := ctx.Value(fieldsKey{}).([]zap.Field)
	require.True(t, ok)
	require.Len(t, fields, 2)
	assert.Equal(t, "request_id", fields[0].Key)
	assert.Equal(t, "caller", fields[1].Key)
	assert.NotNil(t, FromContext(ctx))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "error occurred", errorMessage(nil))
	assert.Equal(t, assert.AnError.Error(), errorMessage(assert.AnError))
}
