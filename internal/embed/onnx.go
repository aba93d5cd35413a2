//go:build onnx

package embed

import (
	"context"
	"fmt"
	"os"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// ONNXConfig configures the local ONNX embedding backend.
type ONNXConfig struct {
	// ModelPath is the path to the ONNX model file.
	ModelPath string

	// TokenizerPath is the path to the tokenizer.json file.
	TokenizerPath string

	// LibraryPath overrides the onnxruntime shared library location.
	// Falls back to DISTILL_ONNX_LIB, then the loader default.
	LibraryPath string

	// MaxSeqLen is the input sequence length (default: 256).
	MaxSeqLen int
}

// ONNXEmbedder runs a sentence-transformer model locally through ONNX
// Runtime. Output is mean-pooled over the attention mask and L2-normalized,
// matching what the HTTP providers return.
type ONNXEmbedder struct {
	session    *ort.DynamicAdvancedSession
	tokenizer  *tokenizer.Tokenizer
	maxSeqLen  int
	dimensions int
}

// NewONNXEmbedder loads the model and tokenizer and creates a session.
// Call Close when done.
func NewONNXEmbedder(cfg ONNXConfig) (*ONNXEmbedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	if cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("tokenizer path is required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 256
	}

	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = os.Getenv("DISTILL_ONNX_LIB")
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initializing onnxruntime: %w", err)
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("loading tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	return &ONNXEmbedder{
		session:   session,
		tokenizer: tk,
		maxSeqLen: cfg.MaxSeqLen,
	}, nil
}

// Embed converts text to an embedding vector.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoding, err := e.tokenizer.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenizing: %w", err)
	}

	seqLen := e.maxSeqLen
	inputIDs := make([]int64, seqLen)
	attentionMask := make([]int64, seqLen)
	tokenTypeIDs := make([]int64, seqLen)

	n := len(encoding.Ids)
	if n > seqLen {
		n = seqLen
	}
	for i := 0; i < n; i++ {
		inputIDs[i] = int64(encoding.Ids[i])
		attentionMask[i] = 1
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("creating input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("creating token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()

	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type")
	}

	outShape := hidden.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unexpected output shape: %v", outShape)
	}
	hiddenDim := int(outShape[2])
	data := hidden.GetData()

	// Mean pool over the non-padded positions.
	vector := make([]float32, hiddenDim)
	var count int
	for pos := 0; pos < seqLen; pos++ {
		if attentionMask[pos] == 0 {
			continue
		}
		count++
		base := pos * hiddenDim
		for d := 0; d < hiddenDim; d++ {
			vector[d] += data[base+d]
		}
	}
	if count > 0 {
		inv := float32(1) / float32(count)
		for d := range vector {
			vector[d] *= inv
		}
	}

	l2Normalize(vector)
	if e.dimensions == 0 {
		e.dimensions = hiddenDim
	}
	return vector, nil
}

// EmbedBatch embeds texts one at a time. The session holds its own
// buffers, so calls are sequential.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

// Dimensions returns the embedding dimensionality, or 0 before the first
// successful call.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close releases the session and ONNX Runtime environment.
func (e *ONNXEmbedder) Close() error {
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	return ort.DestroyEnvironment()
}
