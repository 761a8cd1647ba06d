// Package sentiment labels review texts through a remote text
// classification service.
package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reviewharvest/lib/telemetry"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

const tracerName = "reviewharvest.lib.sentiment"

var tracer = otel.Tracer(tracerName)

type Sentiment string

const (
	Positive Sentiment = "POSITIVE"
	Negative Sentiment = "NEGATIVE"
)

type Label struct {
	Sentiment Sentiment
	Score     float64
}

type Classifier interface {
	// Classify returns one label per text, in the order of texts.
	Classify(ctx context.Context, texts []string) ([]Label, error)
}

var ErrLengthMismatch = errors.New("classifier returned a different number of labels than texts")

// HTTPClient talks to a service that accepts {"inputs": [...]} and answers
// with a list of {"label", "score"} objects, one per input.
type HTTPClient struct {
	client *resty.Client
}

func NewHTTPClient(endpoint string) HTTPClient {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(30 * time.Second).
		SetHeader("content-type", "application/json").
		SetHeader("accept", "application/json")
	telemetry.InstrumentResty(client, tracerName+".http")
	return HTTPClient{client: client}
}

// SetAuthToken sends token as a bearer token with every request.
func (c HTTPClient) SetAuthToken(token string) HTTPClient {
	c.client.SetAuthToken(token)
	return c
}

type request struct {
	Inputs []string `json:"inputs"`
}

type prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (c HTTPClient) Classify(ctx context.Context, texts []string) ([]Label, error) {
	ctx, span := tracer.Start(ctx, "Classify")
	defer span.End()

	if len(texts) == 0 {
		return nil, nil
	}

	res, err := c.client.R().
		SetContext(ctx).
		SetBody(request{Inputs: texts}).
		Post("")
	if err != nil {
		return nil, err
	}
	if res.IsError() {
		return nil, fmt.Errorf("classifier responded with %s: %s", res.Status(), res.String())
	}

	predictions, err := decodePredictions(res.Body())
	if err != nil {
		return nil, err
	}
	if len(predictions) != len(texts) {
		return nil, fmt.Errorf("%w: %d texts, %d labels", ErrLengthMismatch, len(texts), len(predictions))
	}

	labels := make([]Label, len(predictions))
	for i, p := range predictions {
		labels[i] = Label{
			Sentiment: sentimentOf(p.Label),
			Score:     p.Score,
		}
	}
	return labels, nil
}

// decodePredictions accepts both a flat list of predictions and a list
// holding the predictions of each input.
func decodePredictions(body []byte) ([]prediction, error) {
	var flat []prediction
	flatErr := json.Unmarshal(body, &flat)
	if flatErr == nil {
		return flat, nil
	}

	var nested [][]prediction
	err := json.Unmarshal(body, &nested)
	if err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", flatErr)
	}
	out := make([]prediction, len(nested))
	for i, candidates := range nested {
		if len(candidates) == 0 {
			return nil, fmt.Errorf("classifier returned no label for input %d", i)
		}
		best := candidates[0]
		for _, c := range candidates[1:] {
			if c.Score > best.Score {
				best = c
			}
		}
		out[i] = best
	}
	return out, nil
}

func sentimentOf(label string) Sentiment {
	label = strings.ToUpper(strings.TrimSpace(label))
	if strings.HasPrefix(label, "POS") || label == "LABEL_1" {
		return Positive
	}
	return Negative
}
