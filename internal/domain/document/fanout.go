package document

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/medvault/medvault/internal/extraction"
	"github.com/medvault/medvault/internal/platform/blobstore"
	"github.com/medvault/medvault/internal/platform/eventlog"
	"github.com/medvault/medvault/internal/platform/llm"
)

// extractionPrompt is the template sent to the vision model. The rendered
// JSON Schema constrains the reply shape; the presigned URL lets providers
// without inline-image support fetch the document themselves.
const extractionPrompt = `Read the prescription document and extract its medical content.
The document can also be fetched from this time-limited URL: ${IMAGE_URL}

Return ONLY a JSON object that validates against this JSON Schema, with no
surrounding prose or markdown fences:

${SCHEMA}

Use empty lists when no medicines are legible. Omit optional fields you
cannot read rather than guessing.`

// LLMClient is the completion surface the fan-out needs.
type LLMClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Result, error)
}

// Detector is the text-detection surface the fan-out needs.
type Detector interface {
	Boxes(ctx context.Context, filename string, image []byte) (json.RawMessage, error)
	AnnotatedImage(ctx context.Context, filename string, image []byte) ([]byte, error)
}

// FanoutResult holds one slot per external call. A nil slot means that call
// failed or was skipped; partial results are kept.
type FanoutResult struct {
	Boxes        json.RawMessage
	AnnotatedKey *string
	LLMRaw       *string
	Parsed       *extraction.Payload
}

// Fanout runs the per-document external prediction calls concurrently.
type Fanout struct {
	detector      Detector
	llm           LLMClient
	blobs         blobstore.Store
	events        *eventlog.Logger
	log           zerolog.Logger
	detectTimeout time.Duration
	llmTimeout    time.Duration
}

func NewFanout(detector Detector, llmClient LLMClient, blobs blobstore.Store,
	events *eventlog.Logger, log zerolog.Logger, detectTimeout, llmTimeout time.Duration) *Fanout {
	if detectTimeout <= 0 {
		detectTimeout = 25 * time.Second
	}
	if llmTimeout <= 0 {
		llmTimeout = 60 * time.Second
	}
	return &Fanout{
		detector:      detector,
		llm:           llmClient,
		blobs:         blobs,
		events:        events,
		log:           log,
		detectTimeout: detectTimeout,
		llmTimeout:    llmTimeout,
	}
}

// Run issues the boxes, annotated-image and LLM calls concurrently. Each
// goroutine writes only its own result slot and contains its own failure, so
// Run never returns an error; missing slots stay nil.
func (f *Fanout) Run(ctx context.Context, d *Document, image []byte) *FanoutResult {
	res := &FanoutResult{}

	var g errgroup.Group
	g.SetLimit(3)

	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, f.detectTimeout)
		defer cancel()
		boxes, err := f.detector.Boxes(callCtx, d.OriginalName(), image)
		if err != nil {
			f.events.Record("detect_boxes_error", map[string]any{"document_id": d.ID, "error": err.Error()})
			f.log.Warn().Err(err).Str("document_id", d.ID.String()).Msg("detection boxes call failed")
			return nil
		}
		f.events.Record("detect_boxes_ok", map[string]any{"document_id": d.ID})
		res.Boxes = boxes
		return nil
	})

	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(ctx, f.detectTimeout)
		defer cancel()
		annotated, err := f.detector.AnnotatedImage(callCtx, d.OriginalName(), image)
		if err != nil {
			f.events.Record("detect_image_error", map[string]any{"document_id": d.ID, "error": err.Error()})
			f.log.Warn().Err(err).Str("document_id", d.ID.String()).Msg("detection image call failed")
			return nil
		}
		key := "annotated/" + d.StorageKey
		if err := f.blobs.Put(callCtx, key, "image/jpeg", annotated); err != nil {
			f.events.Record("detect_image_store_error", map[string]any{"document_id": d.ID, "error": err.Error()})
			f.log.Warn().Err(err).Str("document_id", d.ID.String()).Msg("failed to store annotated image")
			return nil
		}
		f.events.Record("detect_image_ok", map[string]any{"document_id": d.ID, "key": key})
		res.AnnotatedKey = &key
		return nil
	})

	g.Go(func() error {
		raw, parsed := f.RunLLM(ctx, d, image)
		res.LLMRaw = raw
		res.Parsed = parsed
		return nil
	})

	_ = g.Wait()
	return res
}

// RunLLM issues only the LLM extraction call. Used by Run and by the retry
// path, which re-extracts without re-running detection.
func (f *Fanout) RunLLM(ctx context.Context, d *Document, image []byte) (*string, *extraction.Payload) {
	callCtx, cancel := context.WithTimeout(ctx, f.llmTimeout)
	defer cancel()

	imageURL, err := f.blobs.PresignGet(callCtx, d.StorageKey, "", 10*time.Minute)
	if err != nil {
		f.log.Warn().Err(err).Str("document_id", d.ID.String()).Msg("presign for extraction prompt failed")
		imageURL = ""
	}

	req := llm.Request{
		Prompt: llm.RenderPrompt(extractionPrompt, map[string]string{
			"IMAGE_URL": imageURL,
			"SCHEMA":    extraction.SchemaJSON(),
		}),
	}
	if isImageType(d.ContentType) {
		req.Images = []llm.Image{{MIME: d.ContentType, Data: image}}
	}

	result, err := f.llm.Complete(callCtx, req)
	if err != nil {
		f.log.Warn().Err(err).Str("document_id", d.ID.String()).Msg("llm extraction call failed")
		return nil, nil
	}

	raw := result.Reply
	parsed, err := extraction.ParseReply(result.Reply)
	if err != nil {
		f.events.Record("llm_parse_error", map[string]any{"document_id": d.ID, "error": err.Error()})
		f.log.Debug().Err(err).Str("document_id", d.ID.String()).Msg("llm reply not parseable as payload")
		return &raw, nil
	}
	if err := extraction.Validate(parsed); err != nil {
		f.events.Record("llm_validate_error", map[string]any{"document_id": d.ID, "error": err.Error()})
		return &raw, nil
	}
	f.events.Record("llm_parse_ok", map[string]any{"document_id": d.ID})
	return &raw, parsed
}

func isImageType(contentType string) bool {
	return len(contentType) >= 6 && contentType[:6] == "image/"
}
