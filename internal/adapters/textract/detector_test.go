package textract

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTextract struct {
	out   *textract.DetectDocumentTextOutput
	err   error
	input *textract.DetectDocumentTextInput
}

func (f *fakeTextract) DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error) {
	f.input = params
	return f.out, f.err
}

func TestDetector_KeepsLineBlocksInOrder(t *testing.T) {
	api := &fakeTextract{out: &textract.DetectDocumentTextOutput{Blocks: []types.Block{
		{BlockType: types.BlockTypePage},
		{BlockType: types.BlockTypeLine, Text: aws.String("Banco Nacional")},
		{BlockType: types.BlockTypeWord, Text: aws.String("Banco")},
		{BlockType: types.BlockTypeLine, Text: aws.String("Verifique su cuenta")},
		{BlockType: types.BlockTypeLine},
	}}}
	d := NewDetector(api, nil, zap.NewNop())

	lines, err := d.DetectText(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Banco Nacional", "Verifique su cuenta"}, lines)
	assert.Equal(t, []byte("jpeg"), api.input.Document.Bytes)
}

func TestDetector_WrapsErrors(t *testing.T) {
	boom := errors.New("ProvisionedThroughputExceededException")
	d := NewDetector(&fakeTextract{err: boom}, nil, zap.NewNop())

	_, err := d.DetectText(context.Background(), []byte("jpeg"))
	assert.ErrorIs(t, err, boom)
}

func TestDetector_CloseReleasesIdleConnections(t *testing.T) {
	closed := false
	d := NewDetector(&fakeTextract{}, func() { closed = true }, zap.NewNop())

	require.NoError(t, d.Close())
	assert.True(t, closed)
}
