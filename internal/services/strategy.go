// Package services – Strategy
//
// Strategy chooses between the modern and legacy create-post protocols and
// executes the resulting plan. The plan is a short table of steps, each a
// protocol with an attempt budget, computed from the payload alone by Plan so
// it can be tested without a network:
//
//	payload                               plan
//	------------------------------------  -------------------------------------
//	no media                              modern x1
//	media, LegacyForMedia, legacy shape   legacy x1
//	media, legacy shape                   modern x(1+RetryAttempts), legacy x1
//	media, document shape                 modern x(1+RetryAttempts)
//
// While executing, a 2xx ends the plan. A transient failure (5xx or
// transport error) consumes one attempt of the current step, sleeping
// RetryDelay between attempts of the same step, and moves on to the next step
// once the budget is spent. Any other status ends the plan immediately.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/linkedin-publisher/internal/linkedin"
)

const unidentifiedPrefix = "urn:li:share:unidentified-"

// Step is one protocol in an execution plan with its attempt budget.
type Step struct {
	Protocol linkedin.Protocol
	Attempts int
}

// Result is a successful strategy execution.
type Result struct {
	Protocol       linkedin.Protocol
	PlatformPostID string
	PlatformURL    string
	Unidentified   bool
	Attempts       int
}

// Strategy executes create-post plans against a linkedin.Client.
type Strategy struct {
	Client         linkedin.Client
	RetryAttempts  int // extra modern attempts for media payloads
	RetryDelay     time.Duration
	LegacyForMedia bool

	Sleep func(ctx context.Context, d time.Duration) error
	NewID func() string
}

// NewStrategy returns a Strategy with the default sleep and id source.
func NewStrategy(c linkedin.Client, retryAttempts int, retryDelay time.Duration, legacyForMedia bool) *Strategy {
	return &Strategy{
		Client:         c,
		RetryAttempts:  retryAttempts,
		RetryDelay:     retryDelay,
		LegacyForMedia: legacyForMedia,
		Sleep:          sleepCtx,
		NewID:          uuid.NewString,
	}
}

// Plan returns the ordered steps used to publish p.
func (s *Strategy) Plan(p linkedin.Payload) []Step {
	if !p.HasMedia() {
		return []Step{{Protocol: linkedin.ProtocolModern, Attempts: 1}}
	}
	if s.LegacyForMedia && p.LegacyCompatible() {
		return []Step{{Protocol: linkedin.ProtocolLegacy, Attempts: 1}}
	}
	retries := s.RetryAttempts
	if retries < 0 {
		retries = 0
	}
	plan := []Step{{Protocol: linkedin.ProtocolModern, Attempts: 1 + retries}}
	if p.LegacyCompatible() {
		plan = append(plan, Step{Protocol: linkedin.ProtocolLegacy, Attempts: 1})
	}
	return plan
}

// Execute runs the plan for p. Terminal failures are returned as
// *PublishError or *ComposeError.
func (s *Strategy) Execute(ctx context.Context, token string, p linkedin.Payload) (*Result, error) {
	ctx, span := otel.Tracer("services/Strategy").Start(ctx, "Execute",
		trace.WithAttributes(
			attribute.String("payload.shape", string(p.Shape)),
			attribute.String("payload.author_kind", string(p.AuthorKind())),
			attribute.Int("payload.media", len(p.Media)),
		),
	)
	defer span.End()

	var (
		lastErr  *PublishError
		attempts int
	)
	for _, step := range s.Plan(p) {
		body, err := linkedin.Encode(step.Protocol, p)
		if err != nil {
			return nil, &ComposeError{Detail: err.Error()}
		}

		for n := 1; n <= step.Attempts; n++ {
			if n > 1 {
				if err := s.sleep(ctx, s.RetryDelay); err != nil {
					return nil, &PublishError{Kind: TransientServer, Detail: err.Error()}
				}
			}
			attempts++

			resp, err := s.Client.CreatePost(ctx, token, step.Protocol, body)
			switch {
			case err != nil:
				strategyAttempts.WithLabelValues(string(step.Protocol), "transient").Inc()
				lastErr = &PublishError{Kind: TransientServer, Detail: err.Error()}
				if ctx.Err() != nil {
					return nil, lastErr
				}
			case linkedin.IsSuccess(resp.StatusCode):
				strategyAttempts.WithLabelValues(string(step.Protocol), "success").Inc()
				res := s.identify(step.Protocol, resp)
				res.Attempts = attempts
				span.SetAttributes(
					attribute.String("publish.protocol", string(res.Protocol)),
					attribute.Int("publish.attempts", attempts),
				)
				return res, nil
			case resp.StatusCode >= http.StatusInternalServerError:
				strategyAttempts.WithLabelValues(string(step.Protocol), "transient").Inc()
				lastErr = &PublishError{Kind: TransientServer, StatusCode: resp.StatusCode, Detail: errorDetail(resp.Body)}
			default:
				strategyAttempts.WithLabelValues(string(step.Protocol), "rejected").Inc()
				return nil, &PublishError{Kind: ValidationRejected, StatusCode: resp.StatusCode, Detail: errorDetail(resp.Body)}
			}

			log.Warn().
				Str("protocol", string(step.Protocol)).
				Int("attempt", n).
				Int("status", lastErr.StatusCode).
				Str("detail", lastErr.Detail).
				Msg("create post attempt failed")
		}
	}

	if lastErr == nil {
		lastErr = &PublishError{Kind: TransientServer, Detail: "no attempt made"}
	}
	return nil, lastErr
}

// identify extracts the created-post id: header first, JSON body id second,
// a synthesized placeholder last.
func (s *Strategy) identify(protocol linkedin.Protocol, resp *linkedin.CreateResponse) *Result {
	id := strings.TrimSpace(resp.RestliID)
	if id == "" {
		id = bodyID(resp.Body)
	}
	res := &Result{Protocol: protocol}
	if id == "" {
		newID := s.NewID
		if newID == nil {
			newID = uuid.NewString
		}
		res.PlatformPostID = unidentifiedPrefix + newID()
		res.Unidentified = true
		log.Warn().Str("protocol", string(protocol)).Str("platform_post_id", res.PlatformPostID).
			Msg("post created without identifier")
	} else {
		res.PlatformPostID = linkedin.NormalizePostURN(protocol, id)
	}
	res.PlatformURL = linkedin.PostURL(res.PlatformPostID)
	return res
}

func (s *Strategy) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

func bodyID(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var v struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &v); err != nil || len(v.ID) == 0 {
		return ""
	}
	// Numeric ids exceed float64 precision; keep the literal digits.
	var n json.Number
	if err := json.Unmarshal(v.ID, &n); err == nil {
		return n.String()
	}
	var str string
	if err := json.Unmarshal(v.ID, &str); err == nil {
		return strings.TrimSpace(str)
	}
	return ""
}

// errorDetail pulls a human-readable message out of an error body.
func errorDetail(b []byte) string {
	var v struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &v); err == nil && v.Message != "" {
		return v.Message
	}
	s := strings.TrimSpace(string(b))
	if len(s) > 300 {
		s = s[:300]
	}
	if s == "" {
		return "empty response body"
	}
	return s
}

// IsTransient reports whether err is a retryable publish failure.
func IsTransient(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe) && pe.Kind == TransientServer
}
