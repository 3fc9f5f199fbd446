package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/locvowork/hybridexport/pkg/dataflow"
	"github.com/locvowork/hybridexport/pkg/hybridexcel"
	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultScrollSize = 1000

// ElasticSource pages through an index with the scroll API and yields each
// hit's _source as a field-keyed record.
type ElasticSource struct {
	scroll *elastic.ScrollService
	hits   []*elastic.SearchHit
	pos    int
	done   bool
	logger zerolog.Logger // last request logger seen by Next
}

var _ hybridexcel.RecordSource = (*ElasticSource)(nil)

type ElasticOption func(*elastic.ScrollService)

func WithQuery(q elastic.Query) ElasticOption {
	return func(s *elastic.ScrollService) { s.Query(q) }
}

func WithScrollSize(n int) ElasticOption {
	return func(s *elastic.ScrollService) { s.Size(n) }
}

func WithSort(field string, ascending bool) ElasticOption {
	return func(s *elastic.ScrollService) { s.Sort(field, ascending) }
}

func NewElasticSource(client *elastic.Client, index string, opts ...ElasticOption) *ElasticSource {
	scroll := client.Scroll(index).Size(defaultScrollSize).KeepAlive("1m")
	for _, opt := range opts {
		opt(scroll)
	}
	return &ElasticSource{scroll: scroll, logger: log.Logger}
}

func (s *ElasticSource) Next(ctx context.Context) (interface{}, bool, error) {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		s.logger = *l
	}
	for s.pos >= len(s.hits) {
		if s.done {
			return nil, false, nil
		}
		if err := s.fetch(ctx); err != nil {
			s.done = true
			return nil, false, err
		}
	}

	hit := s.hits[s.pos]
	s.pos++

	rec := make(map[string]interface{})
	dec := json.NewDecoder(bytes.NewReader(hit.Source))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil && err != io.EOF {
		return nil, false, fmt.Errorf("decode hit %s: %w", hit.Id, err)
	}
	rec["_id"] = hit.Id
	return rec, true, nil
}

func (s *ElasticSource) fetch(ctx context.Context) error {
	res, err := dataflow.RetryValue(ctx, s.scroll.Do,
		dataflow.WithRetry(defaultRetries, dataflow.ExponentialBackoff(defaultBackoff)),
		dataflow.WithRetryIf(func(err error) bool { return !errors.Is(err, io.EOF) }),
		dataflow.WithOnRetry(logRetry(ctx, "elastic")))
	if errors.Is(err, io.EOF) {
		s.done = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("scroll: %w", err)
	}

	s.hits, s.pos = nil, 0
	if res.Hits != nil {
		s.hits = res.Hits.Hits
	}
	if len(s.hits) == 0 {
		s.done = true
	}
	return nil
}

// Close releases the server-side scroll context.
func (s *ElasticSource) Close() error {
	s.done = true
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.scroll.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("clear scroll")
	}
	return nil
}
