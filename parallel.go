package diskonion

import (
	"fmt"
	"runtime"
	"sync"
)

// ParallelConfig controls parallel block generation in CreateVolume.
type ParallelConfig struct {
	// Enabled turns on worker-pool block generation.
	Enabled bool

	// MaxWorkers bounds the worker count. Zero means runtime.NumCPU().
	MaxWorkers int

	// MinBlocksForParallel is the batch size below which a batch is
	// generated sequentially instead of fanned out. Zero means 4.
	MinBlocksForParallel int
}

// DefaultParallelConfig returns worker-pool block generation bounded by
// the host's CPU count.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{
		Enabled:              true,
		MaxWorkers:           runtime.NumCPU(),
		MinBlocksForParallel: 4,
	}
}

// blockJob is one block's independent unit of work: derive its key,
// encrypt its (always all-zero, at creation time) plaintext sector under a
// freshly drawn IV. Each job's output depends only on its own index and
// the shared sector-key blob, so the CPU work fans out cleanly; only the
// final write to the image happens in index order.
type blockJob struct {
	index      uint64
	iv         []byte
	ciphertext []byte
	err        error
}

// generateBlocks fills jobs[i].iv and jobs[i].ciphertext for every job,
// using cfg to decide whether to fan the work out across a worker pool.
// Jobs already carry their derived IV is not assumed — generateBlocks
// draws a fresh IV per job from rng and derives the per-block key from
// blob/keyLen/stride before encrypting plaintext (the same plaintext,
// typically an all-zero sector, for every job).
func generateBlocks(cfg ParallelConfig, jobs []*blockJob, blob []byte, keyLen, stride int, plaintext []byte, rng *RNG) error {
	if len(jobs) == 0 {
		return nil
	}

	minParallel := cfg.MinBlocksForParallel
	if minParallel <= 0 {
		minParallel = 4
	}

	if !cfg.Enabled || len(jobs) < minParallel {
		for _, j := range jobs {
			if err := runBlockJob(j, blob, keyLen, stride, plaintext, rng); err != nil {
				return err
			}
		}
		return nil
	}

	numWorkers := cfg.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}

	var wg sync.WaitGroup
	jobChan := make(chan int, len(jobs))
	errChan := make(chan error, numWorkers)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					select {
					case errChan <- fmt.Errorf("diskonion: panic in block-generation worker: %v", r):
					default:
					}
				}
			}()
			for idx := range jobChan {
				if err := runBlockJob(jobs[idx], blob, keyLen, stride, plaintext, rng); err != nil {
					select {
					case errChan <- err:
					default:
					}
					return
				}
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()
	close(errChan)

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

func runBlockJob(j *blockJob, blob []byte, keyLen, stride int, plaintext []byte, rng *RNG) error {
	iv, err := rng.IV()
	if err != nil {
		return err
	}
	key, err := DeriveKey(blob, keyLen, stride, j.index)
	if err != nil {
		return err
	}
	ciphertext, err := EncryptSector(key, iv, plaintext)
	if err != nil {
		return err
	}
	j.iv = iv
	j.ciphertext = ciphertext
	return nil
}
