package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sync"

	"github.com/bietkhonhungvandi212/pagedb/internal/logger"
	"github.com/bietkhonhungvandi212/pagedb/internal/storage/buffer"
	util "github.com/bietkhonhungvandi212/pagedb/internal/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		configPath string
		numPages   int
		workers    int
		ops        int
	)
	flag.StringVar(&configPath, "config", "", "path to an ini config file")
	flag.IntVar(&numPages, "pages", 256, "pages to create")
	flag.IntVar(&workers, "workers", 4, "concurrent readers")
	flag.IntVar(&ops, "ops", 1000, "fetches per reader")
	flag.Parse()

	opts := util.DefaultOptions()
	if configPath != "" {
		loaded, err := util.LoadOptions(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		opts = loaded
	}

	log := logger.New(opts.LogLevel, os.Stderr)
	if err := run(opts, log, numPages, workers, ops); err != nil {
		log.WithField("error", err).Error("pagedb failed")
		os.Exit(1)
	}
}

func run(opts util.Options, log *logrus.Logger, numPages, workers, ops int) error {
	bm, err := buffer.Open(opts, log)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"path":      opts.Path,
		"pool_size": opts.BufferPoolSize,
		"policy":    opts.Policy,
	}).Info("buffer pool opened")

	ids := make([]util.PageID, 0, numPages)
	for i := 0; i < numPages; i++ {
		h, err := bm.CreateRelationPage()
		if err != nil {
			return err
		}
		err = h.Update(func(data []byte) error {
			binary.LittleEndian.PutUint64(data, uint64(h.PageID()))
			return nil
		})
		if rerr := h.Release(true); err == nil {
			err = rerr
		}
		if err != nil {
			return err
		}
		ids = append(ids, h.PageID())
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < ops; i++ {
				if err := verify(bm, ids[rng.Intn(len(ids))]); err != nil {
					errs <- err
					return
				}
			}
		}(int64(w))
	}
	wg.Wait()
	close(errs)
	if err, ok := <-errs; ok {
		return err
	}

	// Drop every tenth page to exercise deallocation
	for i := 0; i < len(ids); i += 10 {
		if err := bm.DeletePage(ids[i]); err != nil {
			return err
		}
	}

	stats := bm.Stats()
	log.WithFields(logrus.Fields{
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"hit_ratio": fmt.Sprintf("%.3f", stats.HitRatio()),
		"evictions": stats.Evictions,
		"flushes":   stats.Flushes,
		"resident":  stats.Resident,
		"capacity":  stats.Capacity,
	}).Info("workload done")

	return bm.Close()
}

func verify(bm *buffer.BufferManager, id util.PageID) error {
	h, err := bm.FetchPage(id)
	if err != nil {
		return err
	}
	err = h.View(func(data []byte) error {
		if got := util.PageID(binary.LittleEndian.Uint64(data)); got != id {
			return errors.Errorf("page %d holds marker %d", id, got)
		}
		return nil
	})
	if rerr := h.Release(false); err == nil {
		err = rerr
	}
	return err
}
