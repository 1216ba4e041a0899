package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/kbukum/prefetchkit/component"
	"github.com/kbukum/prefetchkit/logger"
	"github.com/kbukum/prefetchkit/observability"
	"github.com/kbukum/prefetchkit/pipeline"
	"github.com/kbukum/prefetchkit/prefetch"
	"github.com/kbukum/prefetchkit/source"
)

// Digest is the BLAKE2b-256 sum of one record.
type Digest struct {
	Offset int64
	Size   int
	Sum    [blake2b.Size256]byte
	Worker int
}

// digestRecord is the MultiIter transform. It reuses cell when given one.
func digestRecord(cell *Digest, rec *source.Record, worker int) *Digest {
	if cell == nil {
		cell = new(Digest)
	}
	cell.Offset = rec.Offset
	cell.Size = len(rec.Data)
	cell.Sum = blake2b.Sum256(rec.Data)
	cell.Worker = worker
	return cell
}

// PassResult summarizes one full read of the dataset. Checksum is the XOR
// of every record digest, so it does not depend on the order in which the
// workers finished.
type PassResult struct {
	Pass     int
	Records  int64
	Bytes    int64
	Checksum [blake2b.Size256]byte
	Elapsed  time.Duration
}

func (r PassResult) add(d Digest) PassResult {
	r.Records++
	r.Bytes += int64(d.Size)
	for i := range r.Checksum {
		r.Checksum[i] ^= d.Sum[i]
	}
	return r
}

func (r PassResult) String() string {
	return fmt.Sprintf("pass=%d records=%d bytes=%d checksum=%s",
		r.Pass, r.Records, r.Bytes, hex.EncodeToString(r.Checksum[:]))
}

// digester reads a record file through a prefetching Iter and digests the
// records on a MultiIter worker pool.
type digester struct {
	dataset  string
	records  *source.Records
	upstream *prefetch.Iter[source.Record]
	multi    *prefetch.MultiIter[Digest, source.Record]
	out      io.Writer
	metrics  *observability.PassMetrics
	log      *logger.Logger
	onPass   func(PassResult, error)
}

// newDigester builds both pipelines over records. Nothing runs until the
// components returned by components are started.
func newDigester(dataset string, records *source.Records, cfg prefetch.Config, out io.Writer, opts ...prefetch.Option) (*digester, error) {
	metrics, err := observability.NewPassMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, err
	}
	upstream := prefetch.New[source.Record](cfg.Capacity, opts...)
	multi := prefetch.NewMulti[Digest](upstream, cfg.Workers, cfg.WorkerCapacity, opts...)
	return &digester{
		dataset:  dataset,
		records:  records,
		upstream: upstream,
		multi:    multi,
		out:      out,
		metrics:  metrics,
		log:      logger.Get(serviceName).WithFields(logger.Fields("dataset", dataset)),
	}, nil
}

// components returns the lifecycle components in start order: the reader
// must be running before the workers pull from it.
func (d *digester) components() []component.Component {
	return []component.Component{
		prefetch.AsComponent("records", func(context.Context) error {
			d.upstream.InitProducer(d.records, true)
			return nil
		}, d.upstream),
		prefetch.AsComponent("digest", func(context.Context) error {
			d.multi.Init(digestRecord, nil)
			return nil
		}, d.multi),
	}
}

// run performs passes full reads, rewinding between them. Every pass must
// reproduce the checksum of the first.
func (d *digester) run(ctx context.Context, passes int) ([]PassResult, error) {
	results := make([]PassResult, 0, passes)
	for n := 1; n <= passes; n++ {
		if n > 1 {
			d.multi.Reset()
		}
		res, err := d.pass(ctx, n)
		if d.onPass != nil {
			d.onPass(res, err)
		}
		if err != nil {
			return results, err
		}
		if n > 1 && res.Checksum != results[0].Checksum {
			return results, fmt.Errorf("pass %d: checksum differs from pass 1", n)
		}
		results = append(results, res)
		d.log.Info("pass complete", logger.Fields(
			logger.FieldPass, n,
			"records", res.Records,
			"bytes", res.Bytes,
			logger.FieldDuration, res.Elapsed.Milliseconds(),
		))
	}
	return results, nil
}

func (d *digester) pass(ctx context.Context, n int) (PassResult, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanPass)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrDataset, d.dataset)
	observability.SetSpanAttribute(ctx, observability.AttrPass, n)
	observability.SetSpanAttribute(ctx, observability.AttrWorkers, d.multi.Workers())
	observability.SetSpanAttribute(ctx, observability.AttrPipelineID, d.multi.ID())

	start := time.Now()
	digests := pipeline.FromCursor[Digest](d.multi)
	if d.out != nil && n == 1 {
		digests = pipeline.Tap(digests, func(_ context.Context, dg Digest) error {
			_, err := fmt.Fprintf(d.out, "%d\t%d\t%x\n", dg.Offset, dg.Size, dg.Sum)
			return err
		})
	}
	totals, err := pipeline.Collect(ctx, pipeline.Reduce(digests, PassResult{Pass: n}, PassResult.add))

	res := PassResult{Pass: n}
	if len(totals) == 1 {
		res = totals[0]
	}
	res.Elapsed = time.Since(start)
	if err == nil {
		// Safe to read: the reader has reported the end of the stream.
		err = d.records.Err()
	}

	observability.SetSpanAttribute(ctx, observability.AttrRecords, res.Records)
	observability.SetSpanAttribute(ctx, observability.AttrBytes, res.Bytes)
	if err != nil {
		observability.SetSpanError(ctx, err)
		err = fmt.Errorf("pass %d: %w", n, err)
	}
	d.metrics.RecordPass(ctx, d.dataset, res.Records, res.Bytes, res.Elapsed, err)
	return res, err
}
