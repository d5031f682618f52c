package reorder

import (
	"fmt"
	"os"
	"sort"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/K4TEL/atrium-translator/doctree"
)

// ---------------------------------------------------------------------------
// ONNX sequence model
// ---------------------------------------------------------------------------

// ONNX runs a LayoutReader-style reading-order model through onnxruntime.
// The model consumes one window of grid-normalized boxes as an int64 tensor
// of shape [1, n, 4] (x, y, x+w, y+h per box) on the "bbox" input and emits
// per-position scores of shape [1, n] on the "order" output; boxes are read
// in ascending score order.
//
// An ONNX handle is safe for concurrent use by multiple documents: the
// underlying session is serialized with a mutex, matching the synchronous
// inference contract.
type ONNX struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
}

// ortInit initializes the onnxruntime environment once per process.
var ortInit sync.Once

// NewONNX loads a reading-order model. The optional libPath points at the
// onnxruntime shared library; empty uses the platform default name.
func NewONNX(modelPath, libPath string) (*ONNX, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("reorder: no model path configured")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("reorder: model file: %w", err)
	}
	var initErr error
	ortInit.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, fmt.Errorf("reorder: onnxruntime init: %w", initErr)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{"bbox"}, []string{"order"}, nil)
	if err != nil {
		return nil, fmt.Errorf("reorder: loading %s: %w", modelPath, err)
	}
	return &ONNX{session: session}, nil
}

// Close releases the session.
func (m *ONNX) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}

func (m *ONNX) Order(boxes []doctree.Box) ([]int, error) {
	n := len(boxes)
	if n == 0 {
		return nil, nil
	}

	data := make([]int64, 0, n*4)
	for _, b := range boxes {
		data = append(data, int64(b.X), int64(b.Y), int64(b.X+b.W), int64(b.Y+b.H))
	}
	input, err := ort.NewTensor(ort.NewShape(1, int64(n), 4), data)
	if err != nil {
		return nil, fmt.Errorf("reorder: input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(n)))
	if err != nil {
		return nil, fmt.Errorf("reorder: output tensor: %w", err)
	}
	defer output.Destroy()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("reorder: model already closed")
	}
	if err := m.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("reorder: inference: %w", err)
	}

	scores := output.GetData()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] < scores[order[b]]
	})
	return order, nil
}
