package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"

	"github.com/okian/marquee/internal/adapters/mq/queue"
	"github.com/okian/marquee/internal/domain/model"
)

// maxWarmupBody bounds the POST /warmup body.
const maxWarmupBody = 1 << 14

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// WarmupDependencies defines the interface for queueing warm-ups.
type WarmupDependencies interface {
	Warm(ctx context.Context, req model.SectionRequest) (model.WarmResult, error)
}

// warmupRequest mirrors the OpenAPI schema for POST /warmup.
type warmupRequest struct {
	Category string `json:"category" validate:"required"`
	Limit    *int   `json:"limit" validate:"omitempty,min=1,max=100"`
	Year     *int   `json:"year" validate:"omitempty,min=1870,max=2100"`
	Genre    string `json:"genre" validate:"max=64"`
	GenreID  *int   `json:"genre_id" validate:"omitempty,min=1"`
	Language string `json:"language" validate:"omitempty,len=2,alpha"`
	Query    string `json:"q" validate:"max=128"`
}

func (b warmupRequest) sectionRequest() (model.SectionRequest, error) {
	if err := getValidator().Struct(b); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return model.SectionRequest{}, fmt.Errorf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag())
		}
		return model.SectionRequest{}, err
	}
	category, ok := model.ParseCategory(b.Category)
	if !ok {
		return model.SectionRequest{}, fmt.Errorf("unknown category %q", b.Category)
	}

	req := model.SectionRequest{
		Category: category,
		Limit:    defaultSectionLimit,
		Filter: model.QueryFilter{
			Year:       b.Year,
			GenreID:    b.GenreID,
			GenreName:  strings.TrimSpace(b.Genre),
			Language:   strings.TrimSpace(b.Language),
			SearchText: strings.TrimSpace(b.Query),
		},
	}
	if b.Limit != nil {
		req.Limit = *b.Limit
	}
	return req, nil
}

// WarmupHandler handles warm-up requests.
type WarmupHandler struct {
	deps WarmupDependencies
}

// NewWarmupHandler creates a new warm-up handler.
func NewWarmupHandler(deps WarmupDependencies) *WarmupHandler {
	return &WarmupHandler{deps: deps}
}

// HandlePostWarmup handles POST /warmup requests.
func (h *WarmupHandler) HandlePostWarmup(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_warmup"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var body warmupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxWarmupBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	req, err := body.sectionRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Warm(r.Context(), req)
	switch {
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}

	ack := ackResponse{Status: res.String(), Section: req.Signature(), Duplicate: res == model.WarmDuplicate}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ack)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
