/*
Copyright 2026-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package addrtranslation

import (
	"context"
	"net"
	"strings"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/timeout"
	etcd "go.etcd.io/etcd/client/v3"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// etcdRequestTimeout bounds every unary etcd request, watches are streams
// and are not affected.
const etcdRequestTimeout = 10 * time.Second

// NewEtcdClient connects to the etcd cluster holding the translation table.
func NewEtcdClient(endpoints []string, dialTimeout time.Duration) (*etcd.Client, error) {
	return etcd.New(etcd.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
		DialOptions: []grpc.DialOption{
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
			grpc.WithChainUnaryInterceptor(timeout.UnaryClientInterceptor(etcdRequestTimeout)),
		},
	})
}

type EtcdTranslatorOptions struct {
	KV      etcd.KV
	Watcher etcd.Watcher
	Prefix  string
	Logger  *zap.Logger

	// MaxStartRetries bounds how many times the initial load is retried
	// before Start gives up.
	MaxStartRetries uint64
}

// EtcdTranslator translates addresses using a table stored in etcd.  Every
// key below Prefix is a translation source (with the prefix stripped) and its
// value is the translation target, following the StaticTranslator format.
// Entries which fail to parse are logged and ignored.
type EtcdTranslator struct {
	kv              etcd.KV
	watcher         etcd.Watcher
	prefix          string
	logger          *zap.Logger
	maxStartRetries uint64

	table atomic.Pointer[translationTable]
}

var _ Translator = (*EtcdTranslator)(nil)

func NewEtcdTranslator(opts EtcdTranslatorOptions) *EtcdTranslator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxStartRetries := opts.MaxStartRetries
	if maxStartRetries == 0 {
		maxStartRetries = 5
	}

	t := &EtcdTranslator{
		kv:              opts.KV,
		watcher:         opts.Watcher,
		prefix:          opts.Prefix,
		logger:          logger,
		maxStartRetries: maxStartRetries,
	}
	t.table.Store(newTranslationTable())

	return t
}

// Load reads the full translation table from etcd and installs it, returning
// the etcd revision the table was read at.
func (t *EtcdTranslator) Load(ctx context.Context) (int64, error) {
	resp, err := t.kv.Get(ctx, t.prefix, etcd.WithPrefix())
	if err != nil {
		return 0, err
	}

	table := newTranslationTable()
	for _, kv := range resp.Kvs {
		source := strings.TrimPrefix(string(kv.Key), t.prefix)
		target := string(kv.Value)

		err := table.add(source, target)
		if err != nil {
			t.logger.Warn("ignoring invalid address translation",
				zap.String("source", source),
				zap.String("target", target),
				zap.Error(err))
			continue
		}
	}

	t.table.Store(table)

	var revision int64
	if resp.Header != nil {
		revision = resp.Header.Revision
	}

	t.logger.Debug("loaded address translations",
		zap.Int("numTranslations", table.Len()),
		zap.Int64("revision", revision))

	return revision, nil
}

// Start performs the initial load, retrying with backoff, and then keeps the
// table up to date from an etcd watch until ctx is cancelled.
func (t *EtcdTranslator) Start(ctx context.Context) error {
	var revision int64
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), t.maxStartRetries),
		ctx)
	err := backoff.Retry(func() error {
		rev, err := t.Load(ctx)
		if err != nil {
			t.logger.Warn("failed to load address translations", zap.Error(err))
			return err
		}

		revision = rev
		return nil
	}, b)
	if err != nil {
		return err
	}

	if t.watcher != nil {
		go t.watchThread(ctx, revision)
	}

	return nil
}

// newReconnectBackOff never gives up, the watch is re-established for as
// long as the translator runs.
func newReconnectBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (t *EtcdTranslator) watchThread(ctx context.Context, revision int64) {
	b := newReconnectBackOff()

	for {
		watchCtx, watchCancel := context.WithCancel(ctx)
		watchCh := t.watcher.Watch(
			etcd.WithRequireLeader(watchCtx),
			t.prefix,
			etcd.WithPrefix(),
			etcd.WithRev(revision+1))

		for resp := range watchCh {
			if err := resp.Err(); err != nil {
				t.logger.Warn("address translation watch failed", zap.Error(err))
				break
			}

			// Restart our backoff strategy now that the watch is delivering...
			b.Reset()

			rev, err := t.Load(ctx)
			if err != nil {
				t.logger.Warn("failed to reload address translations", zap.Error(err))
				break
			}
			revision = rev
		}
		watchCancel()

		select {
		case <-time.After(b.NextBackOff()):
		case <-ctx.Done():
			return
		}

		// the watch may have missed changes (or been compacted away), so we
		// resynchronize before watching again.
		rev, err := t.Load(ctx)
		if err != nil {
			t.logger.Warn("failed to reload address translations", zap.Error(err))
			continue
		}
		revision = rev
	}
}

func (t *EtcdTranslator) Translate(addr net.IP, port int) (net.IP, int) {
	return t.table.Load().translate(addr, port)
}
