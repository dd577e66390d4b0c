package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/brojonat/phoenix/service/metrics"
	"github.com/brojonat/phoenix/service/nats"
	"github.com/brojonat/phoenix/service/solana"
	gosolana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "So11111111111111111111111111111111111111112"

type fakeResolver struct {
	infos []solana.SignatureInfo
	err   error
}

func (f *fakeResolver) Resolve(ctx context.Context, address string, limit int) ([]solana.SignatureInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.infos, nil
}

// fakeFetcher serves transactions built from the signature info, with
// per-signature errors and an optional hook run before each fetch.
type fakeFetcher struct {
	mu     sync.Mutex
	errs   map[string]error
	calls  []string
	before func(info solana.SignatureInfo)
}

func (f *fakeFetcher) Fetch(ctx context.Context, info solana.SignatureInfo) (*solana.RawTransaction, error) {
	f.mu.Lock()
	f.calls = append(f.calls, info.Signature)
	err := f.errs[info.Signature]
	before := f.before
	f.mu.Unlock()

	if before != nil {
		before(info)
	}
	if err != nil {
		return nil, err
	}
	return &solana.RawTransaction{
		Confirmation: info,
		Body: solana.EncodedBody{
			Encoding:   solana.BodyEncodingJSON,
			Signatures: []string{info.Signature},
			Meta: &solana.StatusMeta{
				Fee:          5000,
				ComputeUnits: solana.ComputeUnits{State: solana.ComputeUnitsPresent, Value: 100},
			},
		},
	}, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func signatureInfos(n int) []solana.SignatureInfo {
	bt := gosolana.UnixTimeSeconds(1700000000)
	infos := make([]solana.SignatureInfo, n)
	for i := range infos {
		var sig gosolana.Signature
		for j := range sig {
			sig[j] = byte(i + 1)
		}
		infos[i] = solana.SignatureInfo{
			Signature: sig.String(),
			Slot:      uint64(1000 - i),
			BlockTime: &bt,
			Status:    rpc.ConfirmationStatusFinalized,
		}
	}
	return infos
}

func newTestPipeline(r SignatureResolver, f TransactionFetcher, p Publisher, workers int) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPipeline(r, f, p, Config{Workers: workers}, nil, logger)
}

func TestRun_AllPublished(t *testing.T) {
	infos := signatureInfos(5)
	pub := nats.NewMockPublisher()
	p := newTestPipeline(&fakeResolver{infos: infos}, &fakeFetcher{}, pub, 3)

	summary, err := p.Run(context.Background(), testAddress, 5)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, testAddress, summary.Address)
	assert.Equal(t, 5, summary.Attempted)
	assert.Equal(t, 5, summary.Published)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Empty(t, summary.Failures)

	want := make([]string, len(infos))
	for i, info := range infos {
		want[i] = info.Signature
	}
	assert.Equal(t, want, summary.PublishedSignatures)
	assert.Equal(t, 5, pub.GetPublishedCount())
}

func TestRun_FetchNotFoundIsIsolated(t *testing.T) {
	infos := signatureInfos(3)
	fetcher := &fakeFetcher{errs: map[string]error{
		infos[1].Signature: fmt.Errorf("%w: %s", solana.ErrNotFound, infos[1].Signature),
	}}
	pub := nats.NewMockPublisher()
	p := newTestPipeline(&fakeResolver{infos: infos}, fetcher, pub, 2)

	summary, err := p.Run(context.Background(), testAddress, 3)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Attempted)
	assert.Equal(t, 2, summary.Published)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{infos[0].Signature, infos[2].Signature}, summary.PublishedSignatures)

	require.Len(t, summary.Failures, 1)
	failure := summary.Failures[0]
	assert.Equal(t, infos[1].Signature, failure.Signature)
	assert.Equal(t, StageFetch, failure.Stage)
	assert.Equal(t, KindNotFound, failure.Kind)
	assert.ErrorIs(t, failure.Err, solana.ErrNotFound)
	assert.NotEmpty(t, failure.Error)

	published := pub.GetPublished()
	require.Len(t, published, 2)
	signatures := []string{published[0].Signature, published[1].Signature}
	assert.ElementsMatch(t, []string{infos[0].Signature, infos[2].Signature}, signatures)
}

func TestRun_PublishFailureIsIsolated(t *testing.T) {
	infos := signatureInfos(4)
	pub := nats.NewMockPublisher()
	pub.SetSignatureError(infos[2].Signature, errors.New("nats: timeout"))
	p := newTestPipeline(&fakeResolver{infos: infos}, &fakeFetcher{}, pub, 4)

	summary, err := p.Run(context.Background(), testAddress, 4)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Attempted)
	assert.Equal(t, 3, summary.Published)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, infos[2].Signature, summary.Failures[0].Signature)
	assert.Equal(t, StagePublish, summary.Failures[0].Stage)
	assert.Equal(t, KindPublish, summary.Failures[0].Kind)
	assert.ErrorIs(t, summary.Failures[0].Err, nats.ErrPublish)
}

func TestRun_MappingFailureIsIsolated(t *testing.T) {
	infos := signatureInfos(2)
	infos[0].BlockTime = nil
	p := newTestPipeline(&fakeResolver{infos: infos}, &fakeFetcher{}, nats.NewMockPublisher(), 1)

	summary, err := p.Run(context.Background(), testAddress, 2)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Published)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, StageMap, summary.Failures[0].Stage)
	assert.Equal(t, KindMissingTimestamp, summary.Failures[0].Kind)
	assert.True(t, summary.Failures[0].Kind.Retryable())
}

func TestRun_ResolutionFailureAborts(t *testing.T) {
	resolver := &fakeResolver{err: fmt.Errorf("%w: invalid address %q", solana.ErrResolution, "bogus")}
	fetcher := &fakeFetcher{}
	pub := nats.NewMockPublisher()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	p := NewPipeline(resolver, fetcher, pub, Config{}, m, slog.New(slog.NewTextHandler(io.Discard, nil)))

	summary, err := p.Run(context.Background(), "bogus", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, solana.ErrResolution)
	assert.Equal(t, KindResolution, Classify(err))

	require.NotNil(t, summary)
	assert.Equal(t, 0, summary.Attempted)
	assert.Equal(t, 0, summary.Published)
	assert.Equal(t, 0, fetcher.callCount())
	assert.Equal(t, 0, pub.GetPublishedCount())
}

func TestRun_CancellationStopsDispatch(t *testing.T) {
	infos := signatureInfos(3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{before: func(info solana.SignatureInfo) {
		if info.Signature == infos[0].Signature {
			cancel()
		}
	}}
	pub := nats.NewMockPublisher()
	p := newTestPipeline(&fakeResolver{infos: infos}, fetcher, pub, 1)

	summary, err := p.Run(ctx, testAddress, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 0, summary.Published)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 2, summary.Skipped)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, KindCanceled, summary.Failures[0].Kind)
	assert.Equal(t, StagePublish, summary.Failures[0].Stage)

	assert.Equal(t, 1, fetcher.callCount())
	assert.Equal(t, 0, pub.GetPublishedCount())
}

func TestRun_RerunYieldsSameSignatures(t *testing.T) {
	infos := signatureInfos(3)
	pub := nats.NewMockPublisher()
	p := newTestPipeline(&fakeResolver{infos: infos}, &fakeFetcher{}, pub, 2)

	first, err := p.Run(context.Background(), testAddress, 3)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), testAddress, 3)
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.PublishedSignatures, second.PublishedSignatures)
	assert.Equal(t, 3, second.Published)

	// Both runs reach the bus; consumers dedupe on signature.
	published := pub.GetPublished()
	require.Len(t, published, 6)
	var firstRun, secondRun []string
	for i, tx := range published {
		if i < 3 {
			firstRun = append(firstRun, tx.Signature)
		} else {
			secondRun = append(secondRun, tx.Signature)
		}
	}
	assert.ElementsMatch(t, firstRun, secondRun)
}

func TestRun_RecordsMetrics(t *testing.T) {
	infos := signatureInfos(2)
	fetcher := &fakeFetcher{errs: map[string]error{
		infos[0].Signature: fmt.Errorf("%w: connection reset", solana.ErrTransport),
	}}
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	p := NewPipeline(&fakeResolver{infos: infos}, fetcher, nats.NewMockPublisher(), Config{Workers: 1}, m,
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := p.Run(context.Background(), testAddress, 2)
	require.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "ingest_item_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{fmt.Errorf("x: %w", solana.ErrResolution), KindResolution},
		{fmt.Errorf("x: %w", solana.ErrNotFound), KindNotFound},
		{fmt.Errorf("x: %w", solana.ErrDecode), KindDecode},
		{fmt.Errorf("x: %w", solana.ErrTransport), KindTransport},
		{fmt.Errorf("x: %w", solana.ErrMalformedTransaction), KindMalformedTransaction},
		{fmt.Errorf("x: %w", solana.ErrMissingTimestamp), KindMissingTimestamp},
		{fmt.Errorf("x: %w", solana.ErrEncodingMismatch), KindEncodingMismatch},
		{fmt.Errorf("x: %w", nats.ErrPublish), KindPublish},
		{fmt.Errorf("%w: %w", ErrCanceled, context.Canceled), KindCanceled},
		{errors.New("something else"), KindTransport},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
