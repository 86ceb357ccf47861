package layer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinRegistryCoversAllTypes(t *testing.T) {
	r := BuiltinRegistry()
	want := []string{
		TypeActivation, TypeAddition, TypeBatchNorm, TypeConcat,
		TypeConv2D, TypeFlatten, TypeFullyConnected, TypeInput,
		TypeLoss, TypeOutput,
	}
	assert.ElementsMatch(t, want, r.Types())
}

func TestRegistryCreate(t *testing.T) {
	r := BuiltinRegistry()

	op, err := r.Create(TypeActivation)
	require.NoError(t, err)
	assert.Equal(t, TypeActivation, op.Type())

	// Every call yields a fresh instance.
	other, err := r.Create(TypeActivation)
	require.NoError(t, err)
	assert.NotSame(t, op, other)
}

func TestRegistryCreateUnknownType(t *testing.T) {
	r := BuiltinRegistry()
	_, err := r.Create("does_not_exist")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestRegistryRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("custom", func() Operator { return NewFlatten() })
	r.Register("custom", func() Operator { return NewOutput() })

	op, err := r.Create("custom")
	require.NoError(t, err)
	assert.Equal(t, TypeOutput, op.Type())
}
