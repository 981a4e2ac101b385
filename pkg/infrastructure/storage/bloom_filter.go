package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter implements repository.SeenFilter using a Bloom filter.
// False positives make a pair look seen; they never admit duplicates.
type BloomFilter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
	size   uint
	fpRate float64
}

// Config holds Bloom filter configuration
type Config struct {
	Size              uint
	FalsePositiveRate float64
}

// NewBloomFilter creates a new Bloom filter
func NewBloomFilter(config Config) *BloomFilter {
	return &BloomFilter{
		filter: bloom.NewWithEstimates(config.Size, config.FalsePositiveRate),
		size:   config.Size,
		fpRate: config.FalsePositiveRate,
	}
}

// TestAndAdd reports whether key was seen before and marks it as seen
func (bf *BloomFilter) TestAndAdd(key string) bool {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	return bf.filter.TestAndAdd([]byte(key))
}

// Save persists the filter state, replacing filename atomically
func (bf *BloomFilter) Save(filename string) error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := bf.filter.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filename)
}

// Load restores the filter state
func (bf *BloomFilter) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	defer file.Close()

	filter := bloom.NewWithEstimates(bf.size, bf.fpRate)
	if _, err := filter.ReadFrom(file); err != nil {
		return fmt.Errorf("corrupt seen-link filter %s: %w", filename, err)
	}

	bf.mu.Lock()
	bf.filter = filter
	bf.mu.Unlock()
	return nil
}
