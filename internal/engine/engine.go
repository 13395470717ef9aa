// Package engine orchestrates the two-pass recovery: the alias resolver
// sweeps the whole corpus first, then the enum, struct and service
// extractors run concurrently over the classified entries, and the link
// phase validates the assembled registry.
package engine

import (
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/apkscope/thriftex/internal/alias"
	"github.com/apkscope/thriftex/internal/corpus"
	"github.com/apkscope/thriftex/internal/extract"
	"github.com/apkscope/thriftex/internal/lang"
	"github.com/apkscope/thriftex/internal/link"
	"github.com/apkscope/thriftex/internal/schema"
)

// Options tunes a recovery run.
type Options struct {
	Jobs   int // worker goroutines for pass 2; 0 means GOMAXPROCS
	Logger *logrus.Logger
}

// Result is the recovery hand-off artifact: the frozen registry plus the
// reference graph the link phase produced.
type Result struct {
	Registry *schema.Registry
	Refs     []link.Edge

	Entries      int
	Unrecognized int
}

// Run executes both passes over the loaded corpus. The alias table is
// complete before any extractor starts; the pass barrier is the only
// ordering guarantee the extractors need.
func Run(entries []corpus.Entry, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	// Pass 1: alias resolution over the full corpus.
	table, aliasDiags := alias.Resolve(entries)
	reg := schema.NewRegistry(table)
	for _, d := range aliasDiags {
		reg.Report(d)
		log.WithFields(logrus.Fields{"entity": d.Entity, "kind": d.Kind}).Debug(d.Detail)
	}
	log.WithFields(logrus.Fields{
		"entries":    len(entries),
		"aliases":    table.Len(),
		"unresolved": len(table.Unresolved()),
	}).Info("alias pass complete")

	// Pass 2: classify and extract concurrently. Each worker owns a parser
	// and writes into a per-entry scratch registry collected by index, so
	// the shared registry sees entries in corpus order no matter how the
	// scheduler interleaves the workers. Insertion order decides both the
	// emitted order and which definition wins a conflict.
	query, err := lang.TagQuery()
	if err != nil {
		return nil, fmt.Errorf("compiling tag query: %w", err)
	}

	numWorkers := opts.Jobs
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(entries) {
		numWorkers = len(entries)
	}

	work := make(chan int, len(entries))
	scratch := make([]*schema.Registry, len(entries))
	var wg sync.WaitGroup
	var kindCounts [4]int64

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parser := lang.NewParser()

			for idx := range work {
				e := entries[idx]
				tree, err := lang.Parse(parser, e.Source)
				if err != nil || tree == nil {
					log.WithField("entry", e.Path).Warn("parse failed, entry skipped")
					continue
				}

				ix := lang.BuildIndex(query, tree, e.Source)
				ee := &extract.Entry{Corpus: e, Source: e.Source, Index: ix}
				kind := extract.Classify(ee)
				atomic.AddInt64(&kindCounts[kind], 1)

				local := schema.NewRegistry(table)
				switch kind {
				case extract.KindEnum:
					extract.ExtractEnum(ee, local)
				case extract.KindStruct:
					extract.ExtractStruct(ee, local)
				case extract.KindService:
					extract.ExtractService(ee, local)
				}
				scratch[idx] = local
				tree.Close()
			}
		}()
	}

	for i := range entries {
		work <- i
	}
	close(work)
	wg.Wait()

	for i, local := range scratch {
		if local != nil {
			mergeRegistry(reg, local, entries[i].Path)
		}
	}

	// Link: bind deferred references and validate closure.
	refs := link.Finalize(reg)

	log.WithFields(logrus.Fields{
		"enums":       len(reg.Enums()),
		"structs":     len(reg.Structs()),
		"services":    len(reg.Services()),
		"references":  len(refs),
		"diagnostics": len(reg.Diagnostics()),
	}).Info("extraction complete")

	return &Result{
		Registry:     reg,
		Refs:         refs,
		Entries:      len(entries),
		Unrecognized: int(kindCounts[extract.Unrecognized]),
	}, nil
}

// mergeRegistry replays one entry's extraction into the shared registry.
// The registry's own dedupe and conflict rules apply unchanged; entry is the
// corpus path attributed to any conflict raised during the replay.
func mergeRegistry(dst, src *schema.Registry, entry string) {
	for _, d := range src.Diagnostics() {
		dst.Report(d)
	}
	for _, en := range src.Enums() {
		dst.PutEnum(en, entry)
	}
	for _, st := range src.Structs() {
		dst.PutStruct(st, entry)
	}
	for _, name := range src.ExceptionNames() {
		dst.MarkException(name)
	}
	for _, svc := range src.Services() {
		for _, m := range svc.Methods {
			dst.AddMethod(svc.Name, m, entry)
		}
	}
}
