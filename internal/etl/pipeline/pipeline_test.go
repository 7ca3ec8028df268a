package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"coinetl/internal/etl/loader"
	"coinetl/internal/etl/market"
	"coinetl/internal/etl/notifier"
	"coinetl/internal/etl/snapshot"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var runTime = time.Date(2026, 10, 17, 9, 0, 0, 0, time.Local)

type fakeExtractor struct {
	art   *snapshot.Artifact
	err   error
	panic bool
	calls int
}

func (f *fakeExtractor) Extract(context.Context, int, int) (*snapshot.Artifact, error) {
	f.calls++
	if f.panic {
		panic("nil map")
	}
	return f.art, f.err
}

type fakeSession struct {
	ensureErr  error
	upsertErr  error
	upserted   []market.Row
	upsertDate time.Time
	closed     bool
}

func (s *fakeSession) EnsureTable(context.Context, string) error { return s.ensureErr }

func (s *fakeSession) UpsertDaily(_ context.Context, _ string, rows []market.Row, date time.Time) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	s.upserted = rows
	s.upsertDate = date
	return nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeLoader struct {
	dbErr   error
	openErr error
	session *fakeSession
	opened  int
}

func (l *fakeLoader) EnsureDatabase(context.Context) error { return l.dbErr }

func (l *fakeLoader) Open(ctx context.Context) (loader.Session, error) {
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("load stage without deadline")
	}
	l.opened++
	if l.openErr != nil {
		return nil, l.openErr
	}
	return l.session, nil
}

type fakeNotifier struct {
	err      error
	calls    int
	subject  string
	body     string
	csv      string
	date     string
	deadline bool
}

func (n *fakeNotifier) Notify(ctx context.Context, subject, htmlBody, snapshotCSV, dateLabel string) error {
	n.calls++
	n.subject, n.body, n.csv, n.date = subject, htmlBody, snapshotCSV, dateLabel
	_, n.deadline = ctx.Deadline()
	return n.err
}

func testArtifact() *snapshot.Artifact {
	rows := []market.Row{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", TimeStamp: runTime},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", TimeStamp: runTime},
	}
	return &snapshot.Artifact{
		Rows:        rows,
		CSV:         "id,symbol\nbitcoin,btc\nethereum,eth\n",
		CapturedAt:  runTime,
		DateLabel:   "2026-10-17",
		GainersHTML: `<table class="dataframe"><tr><td>gainers</td></tr></table>`,
		LosersHTML:  `<table class="dataframe"><tr><td>losers</td></tr></table>`,
	}
}

type fixture struct {
	ex *fakeExtractor
	ld *fakeLoader
	nt *fakeNotifier
	p  *Pipeline
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		ex: &fakeExtractor{art: testArtifact()},
		ld: &fakeLoader{session: &fakeSession{}},
		nt: &fakeNotifier{},
	}
	opts := Options{Table: "crypto_data", Database: "crypto_db", PerPage: 250, Page: 1, StageTimeout: time.Minute}
	f.p = New(opts, f.ex, f.ld, f.nt, clockwork.NewFakeClockAt(runTime), zaptest.NewLogger(t))
	return f
}

// go test -v --run TestRunSuccess
func TestRunSuccess(t *testing.T) {
	f := newFixture(t)

	res := f.p.Run(context.Background())
	require.True(t, res.OK(), "run failed: %v", res.Err)
	assert.Equal(t, StateDone, res.State)
	assert.Empty(t, res.Stage)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, res.Rows)

	assert.Len(t, f.ld.session.upserted, 2)
	assert.Equal(t, runTime, f.ld.session.upsertDate, "load date is the capture date")
	assert.True(t, f.ld.session.closed)

	assert.Equal(t, 1, f.nt.calls)
	assert.Equal(t, notifier.Subject("2026-10-17"), f.nt.subject)
	assert.Equal(t, "2026-10-17", f.nt.date)
	assert.Equal(t, testArtifact().CSV, f.nt.csv)
	assert.Contains(t, f.nt.body, "<td>gainers</td>")
	assert.Contains(t, f.nt.body, "<td>losers</td>")
	assert.True(t, f.nt.deadline)
}

// go test -v --run TestRunExtractFailure
func TestRunExtractFailure(t *testing.T) {
	f := newFixture(t)
	f.ex.art = nil
	f.ex.err = fmt.Errorf("%w: status 429", snapshot.ErrSourceUnavailable)

	res := f.p.Run(context.Background())
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateExtracting, res.Stage)
	assert.ErrorIs(t, res.Err, snapshot.ErrSourceUnavailable)

	var stageErr *StageError
	require.ErrorAs(t, res.Err, &stageErr)
	assert.Equal(t, StateExtracting, stageErr.Stage)

	assert.Zero(t, f.ld.opened, "no load after extract failure")
	assert.Zero(t, f.nt.calls, "no email after extract failure")
}

// go test -v --run TestRunLoadFailureSkipsEmail
func TestRunLoadFailureSkipsEmail(t *testing.T) {
	cases := map[string]func(*fakeLoader){
		"ensure database": func(l *fakeLoader) { l.dbErr = fmt.Errorf("%w: connection refused", loader.ErrLoad) },
		"open":            func(l *fakeLoader) { l.openErr = fmt.Errorf("%w: auth failed", loader.ErrLoad) },
		"ensure table":    func(l *fakeLoader) { l.session.ensureErr = fmt.Errorf("%w: permission denied", loader.ErrLoad) },
		"upsert":          func(l *fakeLoader) { l.session.upsertErr = fmt.Errorf("%w: disk full", loader.ErrLoad) },
	}

	for name, breakLoader := range cases {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			breakLoader(f.ld)

			res := f.p.Run(context.Background())
			assert.Equal(t, StateFailed, res.State)
			assert.Equal(t, StateLoading, res.Stage)
			assert.ErrorIs(t, res.Err, loader.ErrLoad)
			assert.Zero(t, f.nt.calls)
		})
	}
}

// go test -v --run TestRunSessionClosedOnFailure
func TestRunSessionClosedOnFailure(t *testing.T) {
	f := newFixture(t)
	f.ld.session.upsertErr = fmt.Errorf("%w: disk full", loader.ErrLoad)

	f.p.Run(context.Background())
	assert.True(t, f.ld.session.closed)
}

// go test -v --run TestRunNotifyFailure
func TestRunNotifyFailure(t *testing.T) {
	f := newFixture(t)
	f.nt.err = fmt.Errorf("%w: 535 auth", notifier.ErrDelivery)

	res := f.p.Run(context.Background())
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateNotifying, res.Stage)
	assert.ErrorIs(t, res.Err, notifier.ErrDelivery)
	assert.Len(t, f.ld.session.upserted, 2, "data stays persisted")
}

// go test -v --run TestRunRecoversPanic
func TestRunRecoversPanic(t *testing.T) {
	f := newFixture(t)
	f.ex.panic = true

	var res Result
	require.NotPanics(t, func() { res = f.p.Run(context.Background()) })
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, StateExtracting, res.Stage)
	assert.ErrorContains(t, res.Err, "panic: nil map")
	assert.Zero(t, f.nt.calls)
}

// go test -v --run TestRunsAreIndependent
func TestRunsAreIndependent(t *testing.T) {
	f := newFixture(t)
	f.ex.err = errors.New("timeout")

	first := f.p.Run(context.Background())
	require.Equal(t, StateFailed, first.State)

	f.ex.err = nil
	second := f.p.Run(context.Background())
	assert.Equal(t, StateDone, second.State)
	assert.Equal(t, 2, f.ex.calls)
	assert.Equal(t, 1, f.nt.calls)
}

// go test -v --run TestStageErrorMessage
func TestStageErrorMessage(t *testing.T) {
	err := &StageError{Stage: StateLoading, Err: loader.ErrLoad}
	assert.Equal(t, "loading stage: load failed", err.Error())
	assert.True(t, errors.Is(err, loader.ErrLoad))
}
