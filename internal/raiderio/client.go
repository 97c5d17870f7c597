// Package raiderio is the unauthenticated RaiderIO character profile
// client. Each facade operation is a typed request: a fixed fields
// projection plus a parser from the raw profile to a typed view. Failures
// are contained per character so one bad descriptor never poisons a batch.
package raiderio

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"daebot/internal/constants"
	"daebot/internal/domain"
	"daebot/internal/upstream"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://raider.io/api/v1"

type Client struct {
	baseURL string
	http    *fasthttp.Client
	logger  zerolog.Logger
}

func NewClient(logger zerolog.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    upstream.NewHTTPClient(),
		logger:  logger,
	}
}

// Result pairs a descriptor with either its parsed view or the categorized
// error that kept it out of the batch.
type Result[T any] struct {
	Descriptor domain.Descriptor
	Value      T
	Err        *upstream.Error
}

// Successes projects a result batch to the views that fetched cleanly.
func Successes[T any](results []Result[T]) []T {
	views := make([]T, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			views = append(views, r.Value)
		}
	}
	return views
}

// Failures projects a result batch to its errors.
func Failures[T any](results []Result[T]) []*upstream.Error {
	var errs []*upstream.Error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// fetchCharacters requests the profile of every descriptor concurrently
// with the given fields projection, parsing each response into the caller's
// view type. Every descriptor settles before the batch returns.
func fetchCharacters[T any](ctx context.Context, c *Client, descs []domain.Descriptor, fields string, parse func([]byte, domain.Descriptor) (T, error)) []Result[T] {
	results := make([]Result[T], len(descs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.FetchConcurrency)

	for i, desc := range descs {
		g.Go(func() error {
			results[i] = Result[T]{Descriptor: desc}

			body, uerr := c.fetchProfile(gCtx, desc, fields)
			if uerr != nil {
				c.logger.Warn().
					Stringer("character", desc).
					Str("kind", string(uerr.Kind)).
					Int("status", uerr.Status).
					Msg("character fetch failed")
				results[i].Err = uerr
				return nil
			}

			view, err := parse(body, desc)
			if err != nil {
				c.logger.Warn().Err(err).Stringer("character", desc).Msg("failed to parse profile")
				results[i].Err = &upstream.Error{Kind: upstream.KindParse, Descriptor: desc, Err: err}
				return nil
			}
			results[i].Value = view
			return nil
		})
	}

	// goroutines only return nil; a batch never fails as a whole
	_ = g.Wait()
	return results
}

func (c *Client) fetchProfile(ctx context.Context, desc domain.Descriptor, fields string) ([]byte, *upstream.Error) {
	reqURL := fmt.Sprintf("%s/characters/profile?region=%s&realm=%s&name=%s&fields=%s",
		c.baseURL,
		url.QueryEscape(desc.Region),
		url.QueryEscape(desc.RealmSlug()),
		url.QueryEscape(desc.Name),
		url.QueryEscape(fields),
	)

	var body []byte
	backoff := retry.WithMaxRetries(constants.MaxRetries-1, retry.NewExponential(constants.RetryBaseDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
		defer cancel()

		status, respBody, err := upstream.Get(attemptCtx, c.http, reqURL, nil)
		if err != nil {
			uerr := &upstream.Error{Kind: upstream.Classify(err), Descriptor: desc, Err: err}
			return retry.RetryableError(uerr)
		}

		if status != fasthttp.StatusOK {
			uerr := &upstream.Error{Kind: upstream.ClassifyStatus(status), Status: status, Descriptor: desc}
			if uerr.Retryable() {
				return retry.RetryableError(uerr)
			}
			return uerr
		}

		body = respBody
		return nil
	})
	if err != nil {
		var uerr *upstream.Error
		if errors.As(err, &uerr) {
			return nil, uerr
		}
		return nil, &upstream.Error{Kind: upstream.Classify(err), Descriptor: desc, Err: err}
	}
	return body, nil
}

var Module = fx.Provide(NewClient)
