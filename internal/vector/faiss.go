//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"unsafe"
)

// FAISSIndex is a vector index backed by FAISS IndexFlatIP. Inner product
// over normalized vectors equals cosine similarity, matching MemoryIndex
// semantics at corpus sizes where brute force in Go gets slow.
//
// Like every index here it is build-once: chunk vectors go in during a
// corpus rebuild and are only replaced wholesale, so there is no removal.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	idByLabel  map[int64]string // FAISS internal label -> chunk ID
	labelByID  map[string]int64
	nextLabel  int64
	mu         sync.RWMutex
}

// NewFAISSIndex creates a FAISS inner-product index with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	var index *C.FaissIndexFlatIP
	if ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions)); ret != 0 {
		return nil, fmt.Errorf("create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{
		index:      index,
		dimensions: dimensions,
		idByLabel:  make(map[int64]string),
		labelByID:  make(map[string]int64),
	}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends chunk vectors with the given IDs, preserving insertion order.
func (f *FAISSIndex) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}
	if len(ids) == 0 {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// FAISS wants one contiguous float array.
	n := len(vectors)
	flat := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
		}
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], vec)
	}

	ret := C.faiss_Index_add(
		f.index,
		C.idx_t(n),
		(*C.float)(unsafe.Pointer(&flat[0])),
	)
	if ret != 0 {
		return fmt.Errorf("add vectors to FAISS index: %s", faissLastError())
	}

	for _, id := range ids {
		f.labelByID[id] = f.nextLabel
		f.idByLabel[f.nextLabel] = id
		f.nextLabel++
	}
	return nil
}

// Search returns the top-k chunks by inner product, scores clamped to [0,1].
// An empty index returns an empty result, never an error.
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*Result, error) {
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if k <= 0 {
		return nil, nil
	}
	ntotal := int(C.faiss_Index_ntotal(f.index))
	if ntotal == 0 {
		return nil, nil
	}
	if k > ntotal {
		k = ntotal
	}

	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	// FAISS returns hits already sorted by descending score.
	results := make([]*Result, 0, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 {
			continue
		}
		id, ok := f.idByLabel[labels[i]]
		if !ok {
			continue
		}
		results = append(results, &Result{
			ID:    id,
			Score: math.Max(0, math.Min(1, float64(distances[i]))),
		})
	}
	return results, nil
}

// faissIDMapping is the persisted chunk-ID mapping alongside the FAISS payload.
type faissIDMapping struct {
	IDByLabel map[int64]string
	LabelByID map[string]int64
	NextLabel int64
}

// Save persists the FAISS payload at path and the ID mapping at path+".idmap",
// each written to a temp file and renamed into place.
func (f *FAISSIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	tmpPath := path + ".tmp"
	cPath := C.CString(tmpPath)
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return fmt.Errorf("save FAISS index: %s", faissLastError())
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("swap index file: %w", err)
	}

	mapping := faissIDMapping{
		IDByLabel: f.idByLabel,
		LabelByID: f.labelByID,
		NextLabel: f.nextLabel,
	}
	mapFile, err := os.CreateTemp(dir, filepath.Base(path)+".idmap-*")
	if err != nil {
		return fmt.Errorf("create id map file: %w", err)
	}
	tmpName := mapFile.Name()
	defer os.Remove(tmpName)
	if err := gob.NewEncoder(mapFile).Encode(mapping); err != nil {
		mapFile.Close()
		return fmt.Errorf("encode id map: %w", err)
	}
	if err := mapFile.Close(); err != nil {
		return fmt.Errorf("close id map file: %w", err)
	}
	if err := os.Rename(tmpName, path+".idmap"); err != nil {
		return fmt.Errorf("swap id map file: %w", err)
	}
	return nil
}

// Load reads the FAISS payload and ID mapping from path, replacing the
// in-memory contents. A missing file is an error; callers that treat an
// absent index as empty check existence first.
func (f *FAISSIndex) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open index file: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	var loaded *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &loaded); ret != 0 {
		return fmt.Errorf("load FAISS index: %s", faissLastError())
	}
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = loaded

	mapFile, err := os.Open(path + ".idmap")
	if err != nil {
		if os.IsNotExist(err) {
			// Payload without a mapping serves no lookups; treat as empty.
			f.idByLabel = make(map[int64]string)
			f.labelByID = make(map[string]int64)
			f.nextLabel = 0
			return nil
		}
		return fmt.Errorf("open id map file: %w", err)
	}
	defer mapFile.Close()

	var mapping faissIDMapping
	if err := gob.NewDecoder(mapFile).Decode(&mapping); err != nil {
		return fmt.Errorf("decode id map: %w", err)
	}
	f.idByLabel = mapping.IDByLabel
	f.labelByID = mapping.LabelByID
	f.nextLabel = mapping.NextLabel
	return nil
}

// Size returns the number of indexed chunk vectors.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.labelByID)
}

// Dimensions returns the fixed vector dimensionality D.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the FAISS index resources.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}
